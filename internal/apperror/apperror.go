// Package apperror defines the error kinds shared by every layer of the studio.
// Services return these; the HTTP layer and the studio coordinator translate
// them into status codes and user-facing notifications.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrPrecondition    = errors.New("precondition failed")
	ErrUpstream        = errors.New("upstream failure")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // human-readable message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated reports that the operation needs a signed-in user.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// PreconditionFailed reports a client-side guard that stopped an action
// before any request was sent (empty buffer, assistant disabled, ...).
func PreconditionFailed(message string) *AppError {
	return &AppError{
		Err:     ErrPrecondition,
		Message: message,
	}
}

// Upstream wraps a failure of a remote collaborator (assistant backend,
// compiler, persistence API). The cause stays reachable through errors.As.
func Upstream(service string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrUpstream, cause),
		Message: fmt.Sprintf("%s request failed", service),
	}
}
