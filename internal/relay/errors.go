package relay

import "errors"

var (
	// ErrActuation indicates a switch command could not be delivered.
	ErrActuation = errors.New("relay: actuation failed")

	// ErrInvalidStateMessage indicates a state payload could not be parsed.
	ErrInvalidStateMessage = errors.New("relay: invalid state message")
)
