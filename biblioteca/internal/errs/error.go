package errs

import (
	"errors"
)

var (
	// ErrNotFound is returned when an entity does not exist, or when every
	// catalog resolution strategy has been exhausted.
	ErrNotFound = errors.New("not found")
	// ErrPrecondition is returned when a loan cannot be activated: missing
	// patron, staff or books, or a referenced book with no available copies.
	ErrPrecondition = errors.New("precondition failed")
	// ErrInvalidState is returned when an operation is invoked on a loan in
	// the wrong state.
	ErrInvalidState = errors.New("invalid loan state")
	// ErrConflict is returned on unique constraint violations (author name,
	// staff code).
	ErrConflict = errors.New("already exists")
	// ErrHasReferences guards deletion of books with loans or fines attached.
	ErrHasReferences = errors.New("entity has loans or fines attached")
)
