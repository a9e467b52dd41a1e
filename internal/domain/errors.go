package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrValidation        = errors.New("validation failed")
	ErrUnknownCompetence = errors.New("unknown competence type")
	ErrInvalidStatus     = errors.New("invalid application status")

	// Unique constraint violations on person
	ErrUsernameTaken = errors.New("username is taken")
	ErrEmailTaken    = errors.New("email is taken")
	ErrPnrTaken      = errors.New("personal number is taken")

	// ErrUpgradeConsumed means the account already has credentials or its
	// upgrade code no longer matches.
	ErrUpgradeConsumed = errors.New("upgrade code already used")
)

// ValidationError reports caller-supplied data that violates a precondition.
// It matches ErrValidation with errors.Is, and Cause (when set) as well.
type ValidationError struct {
	Reason string
	Field  string
	Value  string
	Cause  error
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation || (e.Cause != nil && target == e.Cause)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StatusConflictError is returned when an application has already left
// UNHANDLED by the time a transition reached the store.
type StatusConflictError struct {
	PersonID int64
	Current  ApplicationStatus
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("application %d already handled: %s", e.PersonID, e.Current)
}
