// Package errors provides structured error handling with HTTP status code
// mapping and contextual detail fields.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType categorizes an error for logging and response formatting.
type ErrorType string

const (
	// TypeValidation indicates invalid input (HTTP 400)
	TypeValidation ErrorType = "validation"
	// TypeUnauthorized indicates a missing or invalid session (HTTP 401)
	TypeUnauthorized ErrorType = "unauthorized"
	// TypeNotFound indicates a missing resource or route (HTTP 404)
	TypeNotFound ErrorType = "not_found"
	// TypeInternal indicates a server-side error (HTTP 500)
	TypeInternal ErrorType = "internal"
	// TypeExternal indicates a provider communication error (HTTP 502)
	TypeExternal ErrorType = "external"
)

// Error is a structured error with type, message, and detail context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any

	// status, when nonzero, overrides the type-derived HTTP status.
	status int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error type to an HTTP status code.
func (e *Error) HTTPStatus() int {
	if e.status != 0 {
		return e.status
	}
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeUnauthorized:
		return http.StatusUnauthorized
	case TypeNotFound:
		return http.StatusNotFound
	case TypeExternal:
		return http.StatusBadGateway
	case TypeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ValidationError creates a new validation error (HTTP 400).
func ValidationError(message string) *Error {
	return &Error{Type: TypeValidation, Message: message, Context: make(map[string]any)}
}

// UnauthorizedError creates a new unauthorized error (HTTP 401).
func UnauthorizedError(message string) *Error {
	return &Error{Type: TypeUnauthorized, Message: message, Context: make(map[string]any)}
}

// NotFoundError creates a new not-found error (HTTP 404).
func NotFoundError(message string) *Error {
	return &Error{Type: TypeNotFound, Message: message, Context: make(map[string]any)}
}

// InternalError creates a new internal error (HTTP 500).
func InternalError(message string, cause error) *Error {
	return &Error{Type: TypeInternal, Message: message, Cause: cause, Context: make(map[string]any)}
}

// ExternalError creates a new provider communication error (HTTP 502).
func ExternalError(message string, cause error) *Error {
	return &Error{Type: TypeExternal, Message: message, Cause: cause, Context: make(map[string]any)}
}

// WithField adds a detail field to the error (chainable).
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithStatus overrides the status derived from the error type, keeping
// whatever status the provider originally answered with.
func (e *Error) WithStatus(status int) *Error {
	e.status = status
	return e
}

// ErrorResponse is the JSON body sent to clients. Type, Context, and Cause
// are only populated outside production.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Type    ErrorType      `json:"type,omitempty"`
	Context map[string]any `json:"context,omitempty"`
	Cause   string         `json:"cause,omitempty"`
}

// ToResponse converts the error into a response body. In production only the
// message is exposed; otherwise the full structured detail is included.
func (e *Error) ToResponse(production bool) ErrorResponse {
	if production {
		return ErrorResponse{Error: e.Message}
	}
	resp := ErrorResponse{
		Error:   e.Message,
		Type:    e.Type,
		Context: e.Context,
	}
	if e.Cause != nil {
		resp.Cause = e.Cause.Error()
	}
	return resp
}

// AsStructuredError converts any error into a structured Error. If err is
// already an *Error it is returned unchanged, otherwise it is wrapped as an
// internal error.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return InternalError("internal server error", err)
}
