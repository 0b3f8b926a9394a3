package merger

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict indicates two sources supplied differing content at the
	// same path under the ErrorIfConflict policy.
	ErrConflict = errors.New("conflict detected")

	// ErrInvalidInput indicates a merge input that cannot be read as a
	// source list (bad folder, unknown policy name).
	ErrInvalidInput = errors.New("invalid input")
)

// ConflictError reports a path collision under ErrorIfConflict. It names
// the colliding path and both origin sources so the caller can locate the
// bad input without re-running.
type ConflictError struct {
	// Path is the colliding entry path.
	Path string

	// First and Second are the input-list indices of the colliding sources.
	First  int
	Second int

	// FirstName and SecondName identify the colliding sources.
	FirstName  string
	SecondName string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting content at %s: source %d (%s) vs source %d (%s)",
		e.Path, e.First, e.FirstName, e.Second, e.SecondName)
}

// Unwrap makes the error match errors.Is(err, ErrConflict).
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
