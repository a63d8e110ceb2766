package engine

import "errors"

// ErrInvalidDirection indicates a rule has a threshold direction that is
// neither overshoot nor undershoot.
var ErrInvalidDirection = errors.New("engine: invalid threshold direction")
