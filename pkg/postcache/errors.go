package postcache

import "errors"

var (
	// ErrClosed is returned by operations on a closed Cache.
	ErrClosed = errors.New("post cache closed")
	// ErrSchemaVersion indicates the database was written by a newer schema.
	ErrSchemaVersion = errors.New("unsupported schema version")
)
