package store

import "errors"

var (
	ErrNotFound        = errors.New("store: record not found")
	ErrUniqueViolation = errors.New("store: duplicate key value violates unique constraint")
	ErrInvalidInput    = errors.New("store: invalid input")

	// Returned by status-guarded batch mutations when the batch exists but
	// is no longer in a state the mutation accepts.
	ErrStatusConflict = errors.New("store: batch status does not permit this operation")
)
