package backends

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

// classifyHTTPError maps a vendor HTTP status onto the ports error
// sentinels so retry middleware can tell transient failures apart.
func classifyHTTPError(evaluatorID string, statusCode int, message string, err error) *ports.BackendError {
	var kind error
	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		kind = ports.ErrAuthenticationFailed
	case statusCode == http.StatusTooManyRequests:
		kind = ports.ErrRateLimited
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusGatewayTimeout:
		kind = ports.ErrTimeout
	case statusCode >= 500:
		kind = ports.ErrServiceUnavailable
	default:
		kind = ports.ErrInvalidResponse
	}
	if message == "" {
		message = "unknown error"
	}

	return ports.NewBackendError(evaluatorID, "evaluate", fmt.Errorf("%w: %s: %w", kind, message, err)).
		WithStatus(statusCode)
}

// isContextError reports whether err is a context cancellation or
// deadline.
func isContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// classifyContextError wraps context expiry as a retryable timeout. Caller
// cancellation is returned unchanged.
func classifyContextError(evaluatorID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ports.NewBackendError(evaluatorID, "evaluate", fmt.Errorf("%w: %w", ports.ErrTimeout, err))
	}
	return err
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(h http.Header) *time.Duration {
	if h == nil {
		return nil
	}
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs < 0 {
		return nil
	}
	d := time.Duration(secs) * time.Second
	return &d
}
