package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrTransient  = errors.New("transient store error")
)

// AppError carries a user-facing message on top of one of the sentinel kinds.
type AppError struct {
	Err     error  // kind, one of the sentinels above
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying store error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
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

// Conflict reports a duplicate-state violation detected before any write.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
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

// Transient wraps a network or store failure. The core never retries these.
func Transient(operation string, cause error) *AppError {
	return &AppError{
		Err:     ErrTransient,
		Message: fmt.Sprintf("failed to %s", operation),
		Cause:   cause,
	}
}

// Message returns the user-facing text of err: the AppError message when
// there is one, a generic text otherwise.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "something went wrong, please try again"
}
