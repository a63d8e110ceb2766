package control

import "errors"

// ErrInvalidDefinition is returned when a definitions document is malformed
// or any entry is missing a field or has an out-of-range value.
var ErrInvalidDefinition = errors.New("control: invalid definition")
