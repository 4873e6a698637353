// Package errs holds the error taxonomy shared by the stores, the delivery
// services and the transport layers.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input: empty text, bad payload, wrong sender.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks an unknown message or user id.
	ErrNotFound = errors.New("not found")

	// ErrPersistence marks a store that is unreachable or failing.
	ErrPersistence = errors.New("persistence failure")

	// ErrStatusRegression is returned when a status update would move a
	// message backwards along sent < delivered < read.
	ErrStatusRegression = errors.New("message status cannot move backward")

	// ErrStatusUnchanged is returned when the message already has the
	// requested status.
	ErrStatusUnchanged = errors.New("message status unchanged")

	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

// Validation builds an ErrValidation with a formatted reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Persistence wraps a store failure so that callers can match ErrPersistence
// while keeping the driver error in the chain.
func Persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// Code maps an error onto the short code sent in websocket error events.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrPersistence):
		return "persistence_failure"
	case errors.Is(err, ErrStatusRegression):
		return "invalid_transition"
	default:
		return "internal_error"
	}
}
