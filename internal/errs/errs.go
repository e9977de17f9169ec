// Package errs defines the error taxonomy shared by services and the CLI.
package errs

import "errors"

var (
	// ErrUnauthorized is returned when an operation is attempted without an
	// owner context.
	ErrUnauthorized = errors.New("unauthorized: missing owner")

	// ErrNotFound is returned when a referenced rule, match or transaction
	// does not exist (or belongs to a different owner).
	ErrNotFound = errors.New("not found")

	// ErrMissingCategory is returned when an approval is attempted and
	// neither the suggestion nor the override carries a category.
	ErrMissingCategory = errors.New("pending match has no category to apply")
)

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
