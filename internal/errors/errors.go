package errors

import (
	"net/http"
)

// APIError is the structured error carried through gin's error list and
// rendered by the error-handler middleware.
type APIError struct {
	Status   int    `json:"status"`
	Message  string `json:"message"`
	Internal error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Internal
}

func New(status int, message string, internal error) *APIError {
	return &APIError{Status: status, Message: message, Internal: internal}
}

func BadRequest(message string, internal error) *APIError {
	return New(http.StatusBadRequest, message, internal)
}

func Unauthorized(message string, internal error) *APIError {
	return New(http.StatusUnauthorized, message, internal)
}

func Forbidden(message string, internal error) *APIError {
	return New(http.StatusForbidden, message, internal)
}

func NotFound(message string, internal error) *APIError {
	return New(http.StatusNotFound, message, internal)
}

// Conflict covers InvalidState: mutation against a terminal project, an
// illegal status transition, or a reply to a completed annotation.
func Conflict(message string, internal error) *APIError {
	return New(http.StatusConflict, message, internal)
}

func UnprocessableEntity(message string, internal error) *APIError {
	return New(http.StatusUnprocessableEntity, message, internal)
}

// ServiceUnavailable marks transient persistence failures; safe to retry
// because no event is emitted before the store commit succeeds.
func ServiceUnavailable(message string, internal error) *APIError {
	return New(http.StatusServiceUnavailable, message, internal)
}

func Internal(internal error) *APIError {
	return New(http.StatusInternalServerError, "Internal server error", internal)
}

// NewValidationError wraps a request-binding failure.
func NewValidationError(internal error) *APIError {
	return New(http.StatusUnprocessableEntity, "Validation failed", internal)
}
