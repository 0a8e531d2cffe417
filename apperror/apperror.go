// Package apperror defines the application's error taxonomy and its mapping
// to HTTP status codes. Handlers convert any error reaching them into a
// uniform JSON error response via this package, so business logic can return
// typed errors without knowing anything about HTTP.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an application error.
type ErrorType int

const (
	// UnknownError is for unclassified errors.
	UnknownError ErrorType = iota
	// DatabaseError covers failures originating in the persistence layer.
	DatabaseError
	// ConfigError covers invalid or missing configuration.
	ConfigError
	// AuthError covers authentication failures: invalid credentials and
	// invalid or expired session tokens. Deliberately a single type so that
	// callers cannot distinguish "unknown email" from "wrong password" from
	// "expired token".
	AuthError
	// NotFoundError covers requests for a resource that does not exist.
	NotFoundError
	// ValidationError covers rejected input, e.g. a too-short password.
	ValidationError
	// BadRequestError covers malformed requests.
	BadRequestError
	// ConflictError covers uniqueness violations, e.g. an already
	// registered email.
	ConflictError
	// UpstreamError covers failures of the external weather service.
	UpstreamError
	// InternalError is the catch-all for unexpected server-side failures.
	InternalError
)

// AppError carries an error classification, a user-facing message, and an
// optional wrapped cause. Only Message is ever sent to clients.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error satisfies the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error type to an HTTP status code.
func (e *AppError) StatusCode() int {
	switch e.Type {
	case AuthError:
		return http.StatusUnauthorized
	case NotFoundError:
		return http.StatusNotFound
	case ValidationError, BadRequestError:
		return http.StatusBadRequest
	case ConflictError:
		return http.StatusConflict
	case UpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// New creates an AppError with an explicit type.
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{Type: errType, Message: message, Err: cause}
}

// NewDatabaseError wraps a persistence failure.
func NewDatabaseError(message string, cause error) *AppError {
	return New(DatabaseError, message, cause)
}

// NewConfigError wraps a configuration failure.
func NewConfigError(message string, cause error) *AppError {
	return New(ConfigError, message, cause)
}

// NewAuthError creates an authentication failure. The message must not leak
// which part of the credential check failed.
func NewAuthError(message string, cause error) *AppError {
	return New(AuthError, message, cause)
}

// NewNotFoundError creates a missing-resource error.
func NewNotFoundError(message string, cause error) *AppError {
	return New(NotFoundError, message, cause)
}

// NewValidationError creates an input validation error.
func NewValidationError(message string, cause error) *AppError {
	return New(ValidationError, message, cause)
}

// NewBadRequestError creates a malformed-request error.
func NewBadRequestError(message string, cause error) *AppError {
	return New(BadRequestError, message, cause)
}

// NewConflictError creates a uniqueness-violation error.
func NewConflictError(message string, cause error) *AppError {
	return New(ConflictError, message, cause)
}

// NewUpstreamError wraps a failure of an external service.
func NewUpstreamError(message string, cause error) *AppError {
	return New(UpstreamError, message, cause)
}

// NewInternalError wraps an unexpected server-side failure.
func NewInternalError(message string, cause error) *AppError {
	return New(InternalError, message, cause)
}

// ErrorResponse is the JSON body sent for any failed API request.
type ErrorResponse struct {
	Error string `json:"error" example:"a description of the error"`
}

// ToResponse converts the error into its client-facing representation.
// The wrapped cause is intentionally omitted.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message}
}

// FromError extracts an *AppError from err's chain, if present.
func FromError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool { return isType(err, AuthError) }

// IsNotFound reports whether err is a missing-resource error.
func IsNotFound(err error) bool { return isType(err, NotFoundError) }

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return isType(err, ValidationError) }

// IsConflict reports whether err is a uniqueness-violation error.
func IsConflict(err error) bool { return isType(err, ConflictError) }

// IsUpstream reports whether err is an external-service failure.
func IsUpstream(err error) bool { return isType(err, UpstreamError) }
