package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services wraps exactly one of these,
// so callers branch with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotAvailable      = errors.New("not available")
	ErrSelfBooking       = errors.New("self booking")
	ErrConflict          = errors.New("conflict")
)

// Error carries a kind and a human readable message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewValidationError(format string, args ...any) error {
	return newError(ErrValidation, format, args...)
}

func NewNotFoundError(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

func NewUnauthorizedError(format string, args ...any) error {
	return newError(ErrUnauthorized, format, args...)
}

func NewUnauthenticatedError(format string, args ...any) error {
	return newError(ErrUnauthenticated, format, args...)
}

func NewInvalidTransitionError(format string, args ...any) error {
	return newError(ErrInvalidTransition, format, args...)
}

func NewNotAvailableError(format string, args ...any) error {
	return newError(ErrNotAvailable, format, args...)
}

func NewSelfBookingError(format string, args ...any) error {
	return newError(ErrSelfBooking, format, args...)
}

func NewConflictError(format string, args ...any) error {
	return newError(ErrConflict, format, args...)
}

// KindOf returns the error kind wrapped by err, or nil for infrastructure errors.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrValidation, ErrNotFound, ErrUnauthorized, ErrUnauthenticated,
		ErrInvalidTransition, ErrNotAvailable, ErrSelfBooking, ErrConflict,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
