package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

// rateLimitedBackend paces calls with a token bucket so vendor quotas are
// not exceeded.
type rateLimitedBackend struct {
	next    ports.EvaluatorBackend
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that enforces rate limiting using a
// token bucket. limit is calls per second and burst allows short spikes.
// Backends wrapped by the same middleware value share one bucket.
func RateLimitMiddleware(limit rate.Limit, burst int) ports.BackendMiddleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next ports.EvaluatorBackend) ports.EvaluatorBackend {
		return &rateLimitedBackend{
			next:    next,
			limiter: limiter,
		}
	}
}

// Evaluate waits for a token before forwarding the call. It fails when the
// context ends first or its deadline leaves no time for a token.
func (r *rateLimitedBackend) Evaluate(
	ctx context.Context,
	entry domain.Entry,
	settings domain.ResolvedSettings,
) (domain.EvaluationResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.EvaluationResult{}, fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Evaluate(ctx, entry, settings)
}
