package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

// timeoutBackend bounds each backend call.
type timeoutBackend struct {
	next    ports.EvaluatorBackend
	timeout time.Duration
}

// TimeoutMiddleware creates middleware that cancels backend calls running
// longer than timeout. Calls cut off by this middleware fail with a
// retryable *ports.BackendError wrapping ports.ErrTimeout; cancellation of
// the caller's own context is passed through unchanged. A timeout of zero
// or less disables the middleware.
func TimeoutMiddleware(timeout time.Duration) ports.BackendMiddleware {
	return func(next ports.EvaluatorBackend) ports.EvaluatorBackend {
		if timeout <= 0 {
			return next
		}
		return &timeoutBackend{
			next:    next,
			timeout: timeout,
		}
	}
}

// Evaluate executes the call with a deadline.
func (t *timeoutBackend) Evaluate(
	ctx context.Context,
	entry domain.Entry,
	settings domain.ResolvedSettings,
) (domain.EvaluationResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	result, err := t.next.Evaluate(callCtx, entry, settings)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return result, ports.NewBackendError(settings.EvaluatorID, "evaluate",
			fmt.Errorf("%w after %s", ports.ErrTimeout, t.timeout))
	}
	return result, err
}
