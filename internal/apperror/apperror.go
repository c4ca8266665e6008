// Package apperror defines the application's error kinds.
//
// Every AppError wraps one sentinel (ErrNotFound, ErrDatabase, ...) so callers
// can branch with errors.Is while the Message stays human-readable.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// Routing failures. Each one ends a routing pass in a fatal error state.
	ErrDatabase      = errors.New("database error")
	ErrProfileCreate = errors.New("profile create error")
	ErrIntegrity     = errors.New("integrity error")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
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
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned for bad credentials or a missing session.
// HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Database reports a profile lookup failure other than "not found".
// The provider's message is kept verbatim after the prefix.
func Database(providerMsg string) *AppError {
	return &AppError{
		Err:     ErrDatabase,
		Message: "Database error: " + providerMsg,
	}
}

// ProfileCreate reports a failed profile insert.
func ProfileCreate(providerMsg string) *AppError {
	return &AppError{
		Err:     ErrProfileCreate,
		Message: "Could not create profile: " + providerMsg,
	}
}

// Integrity reports that the store claimed success but returned no profile.
func Integrity() *AppError {
	return &AppError{
		Err:     ErrIntegrity,
		Message: "Profile created but not returned. Please retry.",
	}
}
