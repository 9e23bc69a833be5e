package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error that knows how it should be reported to a local API caller
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches two AppErrors by code, so wrapped copies of a sentinel still match it
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewAppError creates a new AppError
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// BadRequest creates a 400 error
func BadRequest(message string, err error) *AppError {
	return NewAppError("BAD_REQUEST", message, http.StatusBadRequest, err)
}

// Unauthorized creates a 401 error
func Unauthorized(message string, err error) *AppError {
	return NewAppError("UNAUTHORIZED", message, http.StatusUnauthorized, err)
}

// NotFound creates a 404 error
func NotFound(message string, err error) *AppError {
	return NewAppError("NOT_FOUND", message, http.StatusNotFound, err)
}

// Conflict creates a 409 error
func Conflict(message string, err error) *AppError {
	return NewAppError("CONFLICT", message, http.StatusConflict, err)
}

// Internal creates a 500 error
func Internal(message string, err error) *AppError {
	return NewAppError("INTERNAL_ERROR", message, http.StatusInternalServerError, err)
}

// BadGateway creates a 502 error, used when the bike-sharing API fails
func BadGateway(message string, err error) *AppError {
	return NewAppError("UPSTREAM_ERROR", message, http.StatusBadGateway, err)
}

// ServiceUnavailable creates a 503 error
func ServiceUnavailable(message string, err error) *AppError {
	return NewAppError("SERVICE_UNAVAILABLE", message, http.StatusServiceUnavailable, err)
}

// Tracker-specific errors

var (
	ErrNoActiveRide        = NewAppError("NO_ACTIVE_RIDE", "No active ride", http.StatusConflict, nil)
	ErrBikeNotFound        = NotFound("Bike not found", nil)
	ErrUnknownCapability   = BadRequest("Unknown equipment capability", nil)
	ErrInvalidSample       = BadRequest("Invalid location sample", nil)
	ErrUpstreamUnavailable = BadGateway("Bike-sharing service unavailable", nil)
	ErrNotAuthenticated    = Unauthorized("Not logged in", nil)
	ErrHistoryDisabled     = ServiceUnavailable("Ride history is not enabled", nil)
	ErrLocationUnavailable = ServiceUnavailable("Device location unavailable", nil)
)

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError attempts to convert an error to AppError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WithCause returns a copy of appErr carrying err as its cause
func WithCause(appErr *AppError, err error) *AppError {
	if appErr == nil {
		return nil
	}
	return &AppError{
		Code:    appErr.Code,
		Message: appErr.Message,
		Status:  appErr.Status,
		Err:     err,
	}
}
