package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a mime type the rasteriser cannot handle.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrNoPages indicates rasterisation produced zero pages.
	ErrNoPages = errors.New("no pages produced")

	// ErrAllPagesFailed indicates every page of a run failed.
	ErrAllPagesFailed = errors.New("all pages failed to process")

	// ErrRetriesExhausted indicates an operation failed on every attempt.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrSinkClosed indicates an observer's transport has gone away.
	ErrSinkClosed = errors.New("sink closed")
)

// RetryError reports the final failure of a retried operation.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrRetriesExhausted, e.Attempts, e.Err)
}

// Unwrap exposes both the sentinel and the last underlying error.
func (e *RetryError) Unwrap() []error {
	return []error{ErrRetriesExhausted, e.Err}
}
