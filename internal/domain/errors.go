package domain

import (
	"errors"
	"strings"
)

// ErrValidation is returned when a domain entity fails validation.
// It is usually wrapped by a *ValidationError carrying field messages.
var ErrValidation = errors.New("validation failed")

// ValidationError collects every field-level message produced while
// validating an entity. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Errors []string
}

// NewValidationError creates a ValidationError from the given messages.
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(e.Errors, "; ")
}

// Unwrap returns ErrValidation so callers can use errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Add appends a message to the error.
func (e *ValidationError) Add(message string) {
	e.Errors = append(e.Errors, message)
}

// HasErrors reports whether any message was collected.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidationMessages extracts the field messages from err, if err is or wraps
// a *ValidationError. Otherwise it returns nil.
func ValidationMessages(err error) []string {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Errors
	}
	return nil
}
