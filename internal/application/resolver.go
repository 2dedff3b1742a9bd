package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-gavel-catalog/internal/domain"
	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

var _ ports.SettingsResolver = (*Resolver)(nil)

// Resolver implements ports.SettingsResolver on top of a descriptor
// registry. It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	registry ports.DescriptorRegistry
	metrics  ports.MetricsCollector
	logger   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverMetrics sets the collector that receives resolution metrics.
func WithResolverMetrics(metrics ports.MetricsCollector) ResolverOption {
	return func(r *Resolver) { r.metrics = metrics }
}

// WithResolverLogger sets the logger for rejected resolutions.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver reading descriptors from registry.
func NewResolver(registry ports.DescriptorRegistry, opts ...ResolverOption) *Resolver {
	if registry == nil {
		panic("resolver: registry is required")
	}
	r := &Resolver{registry: registry, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) startSpan(ctx context.Context, name, id string) (context.Context, trace.Span) {
	tracer := otel.Tracer("settings-resolver")
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("evaluator.id", id)))
}

// Resolve merges partial over the defaults of evaluator id. A nil partial
// yields the defaults.
func (r *Resolver) Resolve(ctx context.Context, id string, partial map[string]any) (*domain.ResolvedSettings, error) {
	ctx, span := r.startSpan(ctx, "Resolver.Resolve", id)
	defer span.End()

	return r.resolve(ctx, span, id, func(schema domain.GroupField) (domain.Settings, error) {
		return domain.Resolve(schema, partial)
	})
}

// ResolveDocument decodes a YAML or JSON settings object from rd and
// resolves it. An empty document is treated as an empty object; input
// holding more than one document is rejected.
func (r *Resolver) ResolveDocument(ctx context.Context, id string, rd io.Reader) (*domain.ResolvedSettings, error) {
	ctx, span := r.startSpan(ctx, "Resolver.ResolveDocument", id)
	defer span.End()

	data, err := io.ReadAll(rd)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var doc any
	dec := yaml.NewDecoder(bytes.NewReader(data))
	err = dec.Decode(&doc)
	if err != nil && !errors.Is(err, io.EOF) {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err == nil {
		var extra any
		if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
			span.SetStatus(codes.Error, "multiple settings documents")
			return nil, errors.New("failed to decode settings: expected a single document")
		}
	}
	span.SetAttributes(attribute.Int("settings.bytes", len(data)))

	return r.resolve(ctx, span, id, func(schema domain.GroupField) (domain.Settings, error) {
		return domain.ResolveValue(schema, doc)
	})
}

// Defaults returns the fully defaulted settings of evaluator id.
func (r *Resolver) Defaults(ctx context.Context, id string) (*domain.ResolvedSettings, error) {
	return r.Resolve(ctx, id, nil)
}

func (r *Resolver) resolve(
	ctx context.Context,
	span trace.Span,
	id string,
	merge func(domain.GroupField) (domain.Settings, error),
) (*domain.ResolvedSettings, error) {
	start := time.Now()

	descriptor, err := r.registry.Get(id)
	if err != nil {
		r.observe(ctx, span, id, start, err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("evaluator.guardrail", descriptor.IsGuardrail))

	values, err := merge(descriptor.Settings)
	if err != nil {
		r.observe(ctx, span, id, start, err)
		return nil, fmt.Errorf("resolve %s: %w", id, err)
	}

	r.observe(ctx, span, id, start, nil)
	return &domain.ResolvedSettings{
		EvaluatorID: id,
		IsGuardrail: descriptor.IsGuardrail,
		Values:      values,
	}, nil
}

// resolveStatus classifies a resolution outcome for metrics and spans.
func resolveStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUnknownEvaluator):
		return "unknown_evaluator"
	case errors.Is(err, domain.ErrUnknownField):
		return "unknown_field"
	case errors.Is(err, domain.ErrInvalidFieldType):
		return "invalid_field_type"
	default:
		return "error"
	}
}

func (r *Resolver) observe(ctx context.Context, span trace.Span, id string, start time.Time, err error) {
	status := resolveStatus(err)
	span.SetAttributes(attribute.String("resolve.status", status))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		r.logger.DebugContext(ctx, "settings rejected",
			slog.String("evaluator.id", id),
			slog.String("status", status),
			slog.Any("error", err))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if r.metrics == nil {
		return
	}
	// Unknown identifiers are caller input; keep them out of label values.
	labelID := id
	if errors.Is(err, domain.ErrUnknownEvaluator) {
		labelID = "unknown"
	}
	labels := map[string]string{"evaluator": labelID, "status": status}
	r.metrics.RecordCounter(ports.MetricResolutions, 1, labels)
	r.metrics.RecordLatency(ports.MetricResolveLatency, time.Since(start), labels)
}
