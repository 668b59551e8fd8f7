package transport

import (
	"fmt"

	"github.com/rhuss/rttp/pkg/protocol"
)

// ErrorType classifies an application error reported to clients.
type ErrorType string

const (
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeTooManyRequests ErrorType = "too_many_requests"
	ErrorTypeServerError     ErrorType = "server_error"
)

// APIError is the JSON error body handlers can return.
type APIError struct {
	Type    ErrorType `json:"type"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError as {"error": {...}}.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError returns an invalid_request error about param.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{Type: ErrorTypeInvalidRequest, Param: param, Message: message}
}

// NewNotFoundError returns a not_found error.
func NewNotFoundError(message string) *APIError {
	return &APIError{Type: ErrorTypeNotFound, Message: message}
}

// StatusFromError maps an APIError type to the response status.
func StatusFromError(err *APIError) protocol.StatusCode {
	switch err.Type {
	case ErrorTypeInvalidRequest:
		return protocol.StatusBadRequest
	case ErrorTypeNotFound:
		return protocol.StatusNotFound
	case ErrorTypeTooManyRequests:
		return protocol.StatusTooManyRequests
	default:
		return protocol.StatusInternalServerError
	}
}

// ErrorJSON builds a JSON error response, deriving the status from the
// error type.
func ErrorJSON(apiErr *APIError) *protocol.Response {
	return protocol.JSON(StatusFromError(apiErr), ErrorResponse{Error: apiErr})
}
