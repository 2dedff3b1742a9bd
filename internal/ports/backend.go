package ports

import (
	"context"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
)

// EvaluatorBackend is the external collaborator that actually performs an
// evaluation, typically by calling a vendor API. The catalog hands it
// settings that have already been resolved and validated.
// Implementations must be safe for concurrent use.
type EvaluatorBackend interface {
	// Evaluate scores entry using settings. Backends should respect
	// context cancellation and return promptly. Transient failures should
	// be wrapped in a *BackendError so retry middleware can classify them.
	Evaluate(
		ctx context.Context,
		entry domain.Entry,
		settings domain.ResolvedSettings,
	) (domain.EvaluationResult, error)
}

// BackendFunc adapts an ordinary function to the EvaluatorBackend interface.
type BackendFunc func(ctx context.Context, entry domain.Entry, settings domain.ResolvedSettings) (domain.EvaluationResult, error)

// Evaluate calls f(ctx, entry, settings).
func (f BackendFunc) Evaluate(
	ctx context.Context,
	entry domain.Entry,
	settings domain.ResolvedSettings,
) (domain.EvaluationResult, error) {
	return f(ctx, entry, settings)
}

// BackendMiddleware decorates an EvaluatorBackend with a cross-cutting
// concern such as retries, rate limiting or tracing.
type BackendMiddleware func(EvaluatorBackend) EvaluatorBackend
