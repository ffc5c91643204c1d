package db

import "errors"

// ErrKeyNotFound signals a cache key with no value.
var ErrKeyNotFound = errors.New("db: key not found")

// Op constants name the backend operation for error context.
const (
	OpGet   = "GET"
	OpSet   = "SET"
	OpPing  = "PING"
	OpQuery = "QUERY"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
