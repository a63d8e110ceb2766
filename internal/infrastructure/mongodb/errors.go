package mongodb

import "errors"

var (
	// ErrDisabled indicates MongoDB integration is disabled in config.
	ErrDisabled = errors.New("mongodb: disabled in configuration")

	// ErrConnectionFailed indicates the connect or initial ping failed.
	ErrConnectionFailed = errors.New("mongodb: connection failed")

	// ErrInsertFailed indicates an InsertMany call failed.
	ErrInsertFailed = errors.New("mongodb: insert failed")
)
