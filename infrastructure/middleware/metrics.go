package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

// metricsBackend records call counts, latency and scores.
type metricsBackend struct {
	next      ports.EvaluatorBackend
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that reports every backend call to
// collector. A nil collector makes the middleware a pass-through.
func MetricsMiddleware(collector ports.MetricsCollector) ports.BackendMiddleware {
	return func(next ports.EvaluatorBackend) ports.EvaluatorBackend {
		return &metricsBackend{
			next:      next,
			collector: collector,
		}
	}
}

// Evaluate executes the call while collecting metrics.
func (m *metricsBackend) Evaluate(
	ctx context.Context,
	entry domain.Entry,
	settings domain.ResolvedSettings,
) (domain.EvaluationResult, error) {
	start := time.Now()
	result, err := m.next.Evaluate(ctx, entry, settings)
	if m.collector == nil {
		return result, err
	}

	labels := map[string]string{
		"evaluator": settings.EvaluatorID,
		"status":    dispatchStatus(result, err),
	}
	m.collector.RecordLatency(ports.MetricDispatchLatency, time.Since(start), labels)
	m.collector.RecordCounter(ports.MetricDispatches, 1, labels)
	if err == nil && result.Score != nil {
		m.collector.RecordHistogram(ports.MetricEvaluationScore, *result.Score,
			map[string]string{"evaluator": settings.EvaluatorID})
	}
	return result, err
}

// dispatchStatus classifies a backend outcome for metric labels.
func dispatchStatus(result domain.EvaluationResult, err error) string {
	switch {
	case err == nil && result.Status != "":
		return string(result.Status)
	case err == nil:
		return string(domain.StatusProcessed)
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ports.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ports.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return string(domain.StatusError)
	}
}
