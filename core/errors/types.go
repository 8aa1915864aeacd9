// ABOUTME: Custom error types for the core business logic
// ABOUTME: Each kind is isolated to the smallest unit it affects (one source, one record)

package errors

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ValidationError represents a validation error. Problems collects every
// failed check so callers can report them together.
type ValidationError struct {
	Field    string
	Message  string
	Problems []string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if len(e.Problems) > 0 {
		return "validation error: " + strings.Join(e.Problems, "; ")
	}
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ExternalAPIError represents a definitive rejection from an external API
type ExternalAPIError struct {
	StatusCode int
	Message    string
	API        string
}

// Error implements the error interface
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("external API error from %s: %d - %s", e.API, e.StatusCode, e.Message)
}

// SourceUnreachableError is returned once every fetch attempt against a source failed
type SourceUnreachableError struct {
	Source   string
	Attempts int
	Cause    error
}

// Error implements the error interface
func (e *SourceUnreachableError) Error() string {
	return fmt.Sprintf("source %s unreachable after %d attempt(s): %v", e.Source, e.Attempts, e.Cause)
}

// Unwrap returns the last underlying cause
func (e *SourceUnreachableError) Unwrap() error {
	return e.Cause
}

// MalformedResponseError is returned when a source body cannot be parsed
type MalformedResponseError struct {
	Source string
	Cause  error
}

// Error implements the error interface
func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.Source, e.Cause)
}

// Unwrap returns the parse error
func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}

// ReconciliationError is a per-record failure while merging into the store
type ReconciliationError struct {
	Source     string
	ExternalID string
	Cause      error
}

// Error implements the error interface
func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile %s/%s: %v", e.Source, e.ExternalID, e.Cause)
}

// Unwrap returns the store error
func (e *ReconciliationError) Unwrap() error {
	return e.Cause
}

// ConfigurationError reports a source that cannot be used as configured
type ConfigurationError struct {
	Source  string
	Key     string
	Message string
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("source %s misconfigured: %s (%s)", e.Source, e.Message, e.Key)
	}
	return fmt.Sprintf("source %s misconfigured: %s", e.Source, e.Message)
}

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsExternalAPI checks if an error is an ExternalAPIError
func IsExternalAPI(err error) bool {
	var apiErr *ExternalAPIError
	return errors.As(err, &apiErr)
}

// IsSourceUnreachable checks if an error is a SourceUnreachableError
func IsSourceUnreachable(err error) bool {
	var e *SourceUnreachableError
	return errors.As(err, &e)
}

// IsMalformedResponse checks if an error is a MalformedResponseError
func IsMalformedResponse(err error) bool {
	var e *MalformedResponseError
	return errors.As(err, &e)
}

// IsReconciliation checks if an error is a ReconciliationError
func IsReconciliation(err error) bool {
	var e *ReconciliationError
	return errors.As(err, &e)
}

// IsConfiguration checks if an error is a ConfigurationError
func IsConfiguration(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

// WrapError wraps an error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ErrDuplicate is returned by a store when (source, external_id) already exists
var ErrDuplicate = errors.New("listing with this source and external id already exists")
