package ingest

import "errors"

var (
	// ErrFetch is returned when the store cannot be read for a device.
	ErrFetch = errors.New("ingest: fetch failed")

	// ErrDecode is returned when a stored entry is not a valid reading.
	ErrDecode = errors.New("ingest: decode failed")
)
