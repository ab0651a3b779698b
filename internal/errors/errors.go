// Package errors carries the error model the HTTP surface speaks: a typed
// Error with a user-facing message, an optional wrapped cause, and
// key/value context that flows into both the log line and the JSON body.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an error for status mapping and metrics labels.
type ErrorType string

const (
	// TypeValidation rejects malformed input: bad vote types, invalid IDs,
	// self-similar proposals.
	TypeValidation ErrorType = "validation"
	// TypeNotFound covers missing proposals and votes.
	TypeNotFound ErrorType = "not_found"
	// TypeConflict covers uniqueness collisions: a webtoon pair proposed
	// twice, a user voting twice on the same proposal.
	TypeConflict ErrorType = "conflict"
	// TypeUnavailable covers degraded backing stores, chiefly an open
	// vote-cache circuit. The operation is retryable once the store heals.
	TypeUnavailable ErrorType = "unavailable"
	// TypeInternal is everything else.
	TypeInternal ErrorType = "internal"
)

var statusByType = map[ErrorType]int{
	TypeValidation:  http.StatusBadRequest,
	TypeNotFound:    http.StatusNotFound,
	TypeConflict:    http.StatusConflict,
	TypeUnavailable: http.StatusBadGateway,
	TypeInternal:    http.StatusInternalServerError,
}

// Error is a classified error with attached request context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error type to a response status code. Unknown types
// count as internal.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByType[e.Type]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func newError(errType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// ValidationError rejects malformed input (HTTP 400).
func ValidationError(message string) *Error {
	return newError(TypeValidation, message, nil)
}

// NotFoundError reports a missing proposal or vote (HTTP 404).
func NotFoundError(message string) *Error {
	return newError(TypeNotFound, message, nil)
}

// ConflictError reports a duplicate proposal or vote (HTTP 409).
func ConflictError(message string) *Error {
	return newError(TypeConflict, message, nil)
}

// UnavailableError reports a degraded dependency (HTTP 502).
func UnavailableError(message string, cause error) *Error {
	return newError(TypeUnavailable, message, cause)
}

// InternalError wraps an unexpected failure (HTTP 500).
func InternalError(message string, cause error) *Error {
	return newError(TypeInternal, message, cause)
}

// WithContext attaches a key/value pair; chainable.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithField is an alias for WithContext.
func (e *Error) WithField(key string, value any) *Error {
	return e.WithContext(key, value)
}

// Response is the JSON body clients receive for a failed request.
type Response struct {
	Error   string         `json:"error"`
	Type    ErrorType      `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *Error) ToResponse() Response {
	return Response{
		Error:   e.Message,
		Type:    e.Type,
		Context: e.Context,
	}
}

// AsStructuredError coerces any error into an *Error. Structured errors
// pass through, wrapped or not; anything else becomes an opaque internal
// error so raw failure text never leaks to clients.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structured *Error
	if errors.As(err, &structured) {
		return structured
	}

	return InternalError("internal server error", err)
}
