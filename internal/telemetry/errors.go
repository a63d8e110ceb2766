package telemetry

import "errors"

// ErrTransport indicates a batch could not be delivered.
var ErrTransport = errors.New("telemetry: transport failed")
