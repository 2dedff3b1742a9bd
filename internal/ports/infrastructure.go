package ports

import (
	"time"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like resolutions, rejections
	// and backend failures.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like the number of registered
	// evaluators or the state of a circuit breaker.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like evaluation scores.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// Metric names shared by the catalog and its dispatch layer.
const (
	MetricResolutions      = "settings_resolutions_total"
	MetricResolveLatency   = "settings_resolve"
	MetricRegistered       = "catalog_registered_evaluators"
	MetricDispatches       = "evaluator_dispatches_total"
	MetricDispatchLatency  = "evaluator_dispatch"
	MetricEvaluationScore  = "evaluator_score"
	MetricCircuitState     = "evaluator_circuit_state"
	MetricRegistrationFail = "catalog_registration_failures_total"
)
