package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConnectionFailed = errors.New("database connection failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrEmptyStatement   = errors.New("empty statement")
	ErrNotAllowed       = errors.New("only CREATE INDEX and DROP INDEX statements are allowed")
	ErrMultiStatement   = errors.New("multiple statements are not allowed")
	ErrParseFailed      = errors.New("failed to parse SQL")
)

// SchemaAccessError records a schema that could not be read during catalog
// collection. The run continues with the remaining schemas.
type SchemaAccessError struct {
	Schema string
	Err    error
}

func (e *SchemaAccessError) Error() string {
	return fmt.Sprintf("schema %q: %v", e.Schema, e.Err)
}

func (e *SchemaAccessError) Unwrap() error {
	return ErrPermissionDenied
}

// ExecutionError records a corrective statement that failed during apply.
// It does not abort the remaining statement queue.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("executing %q: %v", e.SQL, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
