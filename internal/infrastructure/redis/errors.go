package redis

import "errors"

var (
	// ErrConnectionFailed indicates the initial ping failed.
	ErrConnectionFailed = errors.New("redis: connection failed")

	// ErrNotConnected is returned after Close.
	ErrNotConnected = errors.New("redis: not connected")
)
