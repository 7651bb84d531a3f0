package core

import "errors"

// Error taxonomy shared by every service. Callers classify with errors.Is;
// each layer adds context with fmt.Errorf("...: %w", err).
var (
	// ErrValidation marks semantically invalid input: a referenced
	// account/category outside the caller's space, or an amount <= 0.
	// Rejected before any mutation.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an entity id that does not resolve within the
	// given space. No mutation performed.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a concurrent modification detected by a version
	// check. Surfaced only after the bounded retry budget is exhausted.
	ErrConflict = errors.New("concurrent modification")

	// ErrStorage marks an underlying store failure. The operation
	// guarantees no partial effect is visible.
	ErrStorage = errors.New("storage failure")

	// ErrBusinessRule marks a domain rule violation, e.g. a withdrawal
	// exceeding a goal balance or deleting a category that still has
	// expenses.
	ErrBusinessRule = errors.New("business rule violation")
)
