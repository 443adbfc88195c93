package types

import "errors"

// Entity lookup and validation errors returned by stores and backends.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidID     = errors.New("invalid entity id")
	ErrInvalidLayer  = errors.New("invalid layer")
	ErrUnknownType   = errors.New("unknown layer type")
	ErrSchemeMissing = errors.New("no scheme loaded")
)
