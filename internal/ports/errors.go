package ports

import (
	"errors"
	"fmt"
	"time"
)

// Common infrastructure errors that can occur while dispatching to an
// evaluator backend.
var (
	// ErrNoBackend indicates that no backend is registered for an evaluator.
	ErrNoBackend = errors.New("no backend registered")

	// ErrRateLimited indicates that the service has rate limited the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that the external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates that the service returned an invalid
	// response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrAuthenticationFailed indicates that authentication with the
	// service failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// BackendError represents an error from an evaluator backend.
// It includes the evaluator, the operation and any rate limit information.
type BackendError struct {
	// EvaluatorID identifies the evaluator whose backend failed.
	EvaluatorID string

	// Operation is the name of the operation that failed.
	Operation string

	// Err is the underlying error that occurred.
	Err error

	// StatusCode is the HTTP status returned by the vendor, if any.
	StatusCode int

	// RetryAfter indicates how long to wait before retrying, if applicable.
	RetryAfter *time.Duration
}

// Error implements the error interface for BackendError.
func (e *BackendError) Error() string {
	msg := fmt.Sprintf("backend error: evaluator=%s, operation=%s, err=%v", e.EvaluatorID, e.Operation, e.Err)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(", status=%d", e.StatusCode)
	}
	if e.RetryAfter != nil {
		msg += fmt.Sprintf(", retry_after=%v", *e.RetryAfter)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is temporary and the operation
// can be retried.
func (e *BackendError) IsRetryable() bool {
	// Only network/service-level errors are retryable; logic errors are not
	return errors.Is(e.Err, ErrRateLimited) ||
		errors.Is(e.Err, ErrServiceUnavailable) ||
		errors.Is(e.Err, ErrTimeout)
}

// WithStatus records the vendor's HTTP status code and returns e.
func (e *BackendError) WithStatus(code int) *BackendError {
	e.StatusCode = code
	return e
}

// WithRetryAfter records the vendor's back-off hint and returns e. A nil
// hint leaves RetryAfter unset.
func (e *BackendError) WithRetryAfter(d *time.Duration) *BackendError {
	if d != nil {
		v := *d
		e.RetryAfter = &v
	}
	return e
}

// NewBackendError creates a new BackendError with the given details.
func NewBackendError(evaluatorID, operation string, err error) *BackendError {
	return &BackendError{
		EvaluatorID: evaluatorID,
		Operation:   operation,
		Err:         err,
	}
}

// IsRetryable reports whether err, or any error it wraps, is a retryable
// *BackendError.
func IsRetryable(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.IsRetryable()
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
