// Package apperrors defines the error classes surfaced by the ingestion
// pipeline and the API layer. Everything else wraps with fmt.Errorf("%w").
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// NotFoundError indicates a referenced resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// ValidationError indicates malformed input to an operation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ExternalServiceError indicates an upstream dependency (embedding backend,
// extraction) was unreachable, timed out, or returned a malformed response.
// Always fatal to the current job; never retried automatically.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// ProcessingError indicates an internal pipeline failure, such as an
// unsupported file type or a document that produced zero chunks.
type ProcessingError struct {
	Message string
	Err     error
}

func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProcessingError) Unwrap() error { return e.Err }

func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func Validation(message string) error {
	return &ValidationError{Message: message}
}

func ExternalService(service string, err error) error {
	return &ExternalServiceError{Service: service, Err: err}
}

func Processing(message string, err error) error {
	return &ProcessingError{Message: message, Err: err}
}

// HTTPStatus maps an error to the status code the API layer reports.
func HTTPStatus(err error) int {
	var nf *NotFoundError
	var val *ValidationError
	var ext *ExternalServiceError
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &val):
		return http.StatusBadRequest
	case errors.As(err, &ext):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
