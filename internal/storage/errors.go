package storage

import "errors"

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStaleWrite is returned when a cache write carries a computed_at older
	// than the stored row. Rows only move forward in time.
	ErrStaleWrite = errors.New("stale write: stored entry is newer")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
