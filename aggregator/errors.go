// ABOUTME: Error types and handling for the aggregator client
// ABOUTME: Translates core errors into structured errors with context for library callers

package aggregator

import (
	"errors"
	"fmt"

	coreerrors "listings-aggregator-api/core/errors"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeValidation indicates invalid caller input
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeNetwork indicates an upstream could not be reached
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal ErrorType = "internal"

	// ErrorTypeConfiguration indicates a configuration error
	ErrorTypeConfiguration ErrorType = "configuration"
)

// Error represents a structured error from the library
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error with the given type and message
func NewError(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// WithCause adds a cause to the error
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ErrClientClosed is returned when operations are attempted on a closed client
var ErrClientClosed = NewError(ErrorTypeInternal, "client is closed")

// translate wraps a core error in the matching library error type
func translate(err error) error {
	if err == nil {
		return nil
	}

	var validation *coreerrors.ValidationError
	switch {
	case errors.As(err, &validation):
		e := NewError(ErrorTypeValidation, validation.Error()).WithCause(err)
		if len(validation.Problems) > 0 {
			e.WithContext("problems", validation.Problems)
		}
		return e
	case coreerrors.IsNotFound(err):
		return NewError(ErrorTypeNotFound, "listing not found").WithCause(err)
	case coreerrors.IsConfiguration(err):
		return NewError(ErrorTypeConfiguration, "source misconfigured").WithCause(err)
	case coreerrors.IsSourceUnreachable(err):
		return NewError(ErrorTypeNetwork, "source unreachable").WithCause(err)
	default:
		return NewError(ErrorTypeInternal, "operation failed").WithCause(err)
	}
}

func hasType(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsNetworkError checks if an error is a network error
func IsNetworkError(err error) bool {
	return hasType(err, ErrorTypeNetwork)
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return hasType(err, ErrorTypeConfiguration)
}
