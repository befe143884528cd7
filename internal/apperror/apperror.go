// Package apperror defines the typed outcomes shared by the data manager and the
// HTTP handlers. Callers branch on the sentinel kinds with errors.Is instead of
// inspecting message text.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStorage      = errors.New("storage failure")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable, safe to show to the user
	Field   string // Optional: form field causing the error
	Cause   error  // Optional: underlying fault, never shown to the user
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the kind and the cause so errors.Is matches either.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// Is reports whether err carries the given kind.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}

// Message returns the user-facing message of err, or fallback if err is not an AppError.
func Message(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return fallback
}

func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s with ID %d doesn't exist.", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation, e.g. a taken username.
func Conflict(field, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Field:   field,
	}
}

// Unauthorized reports a failed or missing login.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Storage wraps a database or file-system fault. The cause is kept for logging
// and errors.Is, the message stays generic.
func Storage(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Message: message,
		Cause:   cause,
	}
}
