package model

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors used across the application
var (
	// Lookup errors
	ErrEventNotFound   = errors.New("event not found")
	ErrSignupNotFound  = errors.New("signup not found")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrAccountNotFound = errors.New("account not found")

	// Authorization errors
	ErrForbidden = errors.New("actor may not manage this event")

	// Input errors
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("resource already exists")
)

// ValidationError rejects a request and names the signups that caused it
type ValidationError struct {
	Reason    string
	SignupIDs []SignupID
}

// NewValidationError creates a ValidationError
func NewValidationError(reason string, ids ...SignupID) *ValidationError {
	return &ValidationError{Reason: reason, SignupIDs: ids}
}

func (e *ValidationError) Error() string {
	if len(e.SignupIDs) == 0 {
		return e.Reason
	}
	ids := make([]string, len(e.SignupIDs))
	for i, id := range e.SignupIDs {
		ids[i] = string(id)
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(ids, ", "))
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
