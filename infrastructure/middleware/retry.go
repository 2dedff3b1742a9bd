package middleware

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

// retryBackend retries transient backend failures with exponential backoff.
type retryBackend struct {
	next       ports.EvaluatorBackend
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// RetryMiddleware creates middleware that retries calls failing with a
// retryable *ports.BackendError (rate limited, unavailable, timed out).
// Other errors, including ErrCircuitOpen, are returned immediately.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) ports.BackendMiddleware {
	return func(next ports.EvaluatorBackend) ports.EvaluatorBackend {
		return &retryBackend{
			next:       next,
			maxRetries: max(maxRetries, 0),
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
		}
	}
}

// Evaluate calls the backend until it succeeds, fails permanently or the
// retry budget is spent. A RetryAfter hint on the error overrides the
// computed backoff, capped at the maximum delay.
func (r *retryBackend) Evaluate(
	ctx context.Context,
	entry domain.Entry,
	settings domain.ResolvedSettings,
) (domain.EvaluationResult, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		result, err := r.next.Evaluate(ctx, entry, settings)
		if err == nil {
			return result, nil
		}
		if !ports.IsRetryable(err) || errors.Is(err, ErrCircuitOpen) || ctx.Err() != nil {
			return result, err
		}

		lastErr = err
		if attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return domain.EvaluationResult{}, ctx.Err()
		case <-time.After(r.delay(attempt, err)):
		}
	}

	return domain.EvaluationResult{}, fmt.Errorf("evaluation failed after %d attempts: %w", r.maxRetries+1, lastErr)
}

func (r *retryBackend) delay(attempt int, err error) time.Duration {
	var be *ports.BackendError
	if errors.As(err, &be) && be.RetryAfter != nil {
		return min(*be.RetryAfter, r.maxDelay)
	}
	return r.calculateDelay(attempt)
}

func (r *retryBackend) calculateDelay(attempt int) time.Duration {
	attempt = min(max(attempt, 0), 30)
	// #nosec G115 - attempt is bounded between 0 and 30
	multiplier := 1 << uint(attempt)
	delay := time.Duration(float64(r.baseDelay) * float64(multiplier))

	// Jitter of ±25%.
	// #nosec G404 - Using weak RNG is acceptable for jitter calculation
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - (delay / 4)

	return min(delay, r.maxDelay)
}
