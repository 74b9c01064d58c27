package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType classifies application errors across the session core and its
// collaborator services.
type ErrorType string

const (
	// Session / input errors
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	ErrorTypeNotSignedIn  ErrorType = "not_signed_in"

	// Collaborator lifecycle errors
	ErrorTypeNotConfigured ErrorType = "not_configured"
	ErrorTypeStorage       ErrorType = "storage"

	// HTTP client errors
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeServer       ErrorType = "server"
	ErrorTypeEncoding     ErrorType = "encoding"
	ErrorTypeDecoding     ErrorType = "decoding"
	ErrorTypeInvalidURL   ErrorType = "invalid_url"

	// Notification scheduler errors
	ErrorTypeNotAllowed       ErrorType = "not_allowed"
	ErrorTypeInvalidDelay     ErrorType = "invalid_delay"
	ErrorTypeSchedulingFailed ErrorType = "scheduling_failed"
	ErrorTypeAlreadyRunning   ErrorType = "already_running"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// IsType reports whether err is an AppError of the given type
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// TypeOf returns the error type of err, or an empty string if err is not an AppError
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// NewInvalidInputError creates an error for malformed caller-supplied data
func NewInvalidInputError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidInput,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewNotSignedInError creates an error for operations requiring an authenticated session
func NewNotSignedInError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotSignedIn,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewNotConfiguredError creates an error for a collaborator used before required setup
func NewNotConfiguredError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotConfigured,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewStorageError creates an error wrapping a persistence backend failure
func NewStorageError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeStorage,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// NewNetworkError creates an error wrapping a transport failure
func NewNetworkError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeNetwork,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Internal:   internal,
	}
}

// NewUnauthorizedError creates an error for an HTTP 401 response
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewForbiddenError creates an error for an HTTP 403 response
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewNotFoundError creates an error for an HTTP 404 response
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewServerError creates an error for a non-2xx upstream status code
func NewServerError(code int) *AppError {
	return &AppError{
		Type:       ErrorTypeServer,
		Message:    fmt.Sprintf("server returned status %d", code),
		StatusCode: http.StatusBadGateway,
		Details:    map[string]interface{}{"upstream_status": code},
	}
}

// UpstreamStatus returns the upstream status code carried by a server error, or 0
func UpstreamStatus(err error) int {
	var appErr *AppError
	if !stderrors.As(err, &appErr) || appErr.Type != ErrorTypeServer {
		return 0
	}
	if code, ok := appErr.Details["upstream_status"].(int); ok {
		return code
	}
	return 0
}

// NewEncodingError creates an error for a request body that could not be encoded
func NewEncodingError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeEncoding,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// NewDecodingError creates an error for a response body that could not be decoded
func NewDecodingError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeDecoding,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// NewInvalidURLError creates an error for a rejected request URL
func NewInvalidURLError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidURL,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewNotAllowedError creates an error for a notification call without permission
func NewNotAllowedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotAllowed,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewInvalidDelayError creates an error for a non-positive notification delay
func NewInvalidDelayError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidDelay,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewSchedulingFailedError creates an error for a notification that could not be scheduled
func NewSchedulingFailedError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeSchedulingFailed,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// NewAlreadyRunningError creates a warning-grade error for a campaign that is already started
func NewAlreadyRunningError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeAlreadyRunning,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// ErrorResponse represents the JSON error response
type ErrorResponse struct {
	Error struct {
		Type      ErrorType              `json:"type"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details,omitempty"`
		RequestID string                 `json:"request_id,omitempty"`
		Timestamp string                 `json:"timestamp"`
	} `json:"error"`
}
