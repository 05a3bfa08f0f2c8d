// Package errors defines the sentinel errors shared across the navigation
// search packages, an AppError wrapper for the HTTP surface, and the typed
// ConfigurationError returned when a caller supplies settings the engines
// do not recognise.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnknownFilter    = errors.New("unknown symbol filter")
	ErrUnknownKind      = errors.New("unknown symbol kind")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrTierUnavailable  = errors.New("symbol tier unavailable")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

// ConfigurationError reports a rejected setting. The component that returns
// it leaves its previous configuration in place.
type ConfigurationError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s=%v", e.Err.Error(), e.Field, e.Value)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError wraps sentinel for the given field and value.
func NewConfigurationError(sentinel error, field string, value any) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Err: sentinel}
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrSnapshotNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnknownFilter), errors.Is(err, ErrUnknownKind), errors.Is(err, ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, ErrTierUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
