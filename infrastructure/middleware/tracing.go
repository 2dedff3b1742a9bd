package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

// tracedBackend records an OpenTelemetry span per backend call.
type tracedBackend struct {
	next   ports.EvaluatorBackend
	tracer trace.Tracer
}

// TracingMiddleware creates middleware that wraps every backend call in a
// span carrying the evaluator, its guardrail flag and the outcome.
func TracingMiddleware() ports.BackendMiddleware {
	return func(next ports.EvaluatorBackend) ports.EvaluatorBackend {
		return &tracedBackend{
			next:   next,
			tracer: otel.Tracer("evaluator-backend"),
		}
	}
}

// Evaluate executes the call within a span.
func (t *tracedBackend) Evaluate(
	ctx context.Context,
	entry domain.Entry,
	settings domain.ResolvedSettings,
) (domain.EvaluationResult, error) {
	ctx, span := t.tracer.Start(ctx, "Backend.Evaluate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("evaluator.id", settings.EvaluatorID),
			attribute.Bool("evaluator.guardrail", settings.IsGuardrail),
			attribute.Int("entry.input.length", len(entry.Input)),
			attribute.Int("entry.output.length", len(entry.Output)),
		),
	)
	defer span.End()

	result, err := t.next.Evaluate(ctx, entry, settings)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	span.SetAttributes(attribute.String("result.status", string(result.Status)))
	if result.Score != nil {
		span.SetAttributes(attribute.Float64("result.score", *result.Score))
	}
	if result.Passed != nil {
		span.SetAttributes(attribute.Bool("result.passed", *result.Passed))
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}
