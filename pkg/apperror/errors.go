package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInternal     = errors.New("internal server error")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")

	// ErrStorageTransient marks failures that are safe to retry (serialization
	// conflicts, deadlocks, lock timeouts, dropped connections).
	ErrStorageTransient = errors.New("storage temporarily unavailable")
	// ErrStorageUnavailable is returned once retries are exhausted or the
	// failure is not retryable.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// AppError is a custom error type that can hold an HTTP status code
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsKnown reports whether err already carries one of the core error kinds.
func IsKnown(err error) bool {
	for _, kind := range []error{ErrNotFound, ErrInvalidInput, ErrConflict, ErrStorageTransient, ErrStorageUnavailable, ErrUnauthorized, ErrForbidden} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageTransient)
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrStorageTransient) {
		return http.StatusServiceUnavailable
	}
	// Default to internal server error
	return http.StatusInternalServerError
}
