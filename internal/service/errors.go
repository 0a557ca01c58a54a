package service

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized  = errors.New("admin privileges required")
	ErrOrderNotFound = errors.New("order not found")
	ErrGiftNotFound  = errors.New("gift not found")
	ErrValidation    = errors.New("validation failed")
)

// ValidationError rejects input before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PersistenceError wraps a failed store call. Retryable is set when the
// same request may succeed if submitted again.
type PersistenceError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
