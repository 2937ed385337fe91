package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks bad input; it never reaches the store.
	ErrValidation = errors.New("validation error")
	// ErrStore marks a failed call against the listing store.
	ErrStore = errors.New("store error")
	// ErrNotFound indicates a listing or purchase request is missing.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a stale revision precondition.
	ErrConflict = errors.New("concurrency conflict")
	// ErrTimeout indicates a store call exceeded its deadline.
	ErrTimeout = errors.New("store timeout")
	// ErrForbidden indicates the caller does not own the listing.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated indicates no current user identity is available.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// FieldError describes one invalid input field
type FieldError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Issue)
}

// Is makes every FieldError match ErrValidation
func (e *FieldError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a validation error for field
func Invalid(field, issue string) error {
	return &FieldError{Field: field, Issue: issue}
}
