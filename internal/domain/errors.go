// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidRole is returned when a user role is not one of the closed set.
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidLeague is returned when a league value is not C, B or A.
	ErrInvalidLeague = errors.New("invalid league")

	// ErrInvalidTaskStatus is returned when a task status is not valid.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrInvalidTaskType is returned when a task type is not valid.
	ErrInvalidTaskType = errors.New("invalid task type")

	// ErrInvalidPriority is returned when a task priority is not valid.
	ErrInvalidPriority = errors.New("invalid task priority")

	// ErrInvalidComplexity is returned when a complexity tier is not valid.
	ErrInvalidComplexity = errors.New("invalid complexity")

	// ErrInvalidWallet is returned when a wallet designation is not main or karma.
	ErrInvalidWallet = errors.New("invalid wallet")

	// ErrNegativeAmount is returned when a credit amount is negative.
	ErrNegativeAmount = errors.New("amount cannot be negative")
)

// ValidationError wraps a field-level validation failure with context.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return "validation failed for " + e.Field + ": " + e.Message
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}
