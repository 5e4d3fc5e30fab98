package engine

import "errors"

// ErrNotFound and related errors classify engine failures for callers.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrCapacityExceeded   = errors.New("column capacity exceeded")
	ErrInvariantViolation = errors.New("column ordering invariant violated")
	ErrConflict           = errors.New("concurrent move conflict")
	ErrColumnNotEmpty     = errors.New("column still holds tasks")
)
