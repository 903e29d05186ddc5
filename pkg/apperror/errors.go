package apperror

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrInternal     = errors.New("internal server error")

	// ErrInvalidEvent marks an event with an unknown type or missing scope.
	// Rejected outright, callers must not retry.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrUnavailable means the durable log or record store is unreachable.
	// Callers retry with backoff; the fast counter path tolerates duplicates.
	ErrUnavailable = errors.New("service unavailable")

	// ErrConflictRetryable is a unique-key violation on a rollup upsert.
	// Handled internally by retrying as an update, never surfaced to callers.
	ErrConflictRetryable = errors.New("conflict, retry as update")

	// ErrInsufficientData means a scoring/prediction call had too little
	// history. Services degrade to low-confidence defaults instead of
	// returning this to HTTP clients.
	ErrInsufficientData = errors.New("insufficient data")
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

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrInvalidEvent) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrUnavailable) {
		return http.StatusServiceUnavailable
	}
	// Default to internal server error
	return http.StatusInternalServerError
}
