package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

// metricsNamespace prefixes every metric exported by the catalog.
const metricsNamespace = "evalcatalog"

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// Known catalog metrics get dedicated vectors; anything else lands in the
// generic operation, gauge and observation vectors keyed by metric name.
type PrometheusMetrics struct {
	resolutions          *prometheus.CounterVec
	registrationFailures *prometheus.CounterVec
	registered           prometheus.Gauge
	dispatches           *prometheus.CounterVec
	scores               *prometheus.HistogramVec
	circuitState         *prometheus.GaugeVec
	operationLatency     *prometheus.HistogramVec
	operationCounter     *prometheus.CounterVec
	systemGauges         *prometheus.GaugeVec
	observations         *prometheus.HistogramVec
}

// NewPrometheusMetrics creates the catalog metrics and registers them with
// reg. Passing prometheus.DefaultRegisterer exposes them on the default
// /metrics handler; tests pass a fresh prometheus.NewRegistry().
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		// Catalog metrics.
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      ports.MetricResolutions,
				Help:      "Settings resolutions by evaluator and outcome.",
			},
			[]string{"evaluator", "status"},
		),
		registrationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      ports.MetricRegistrationFail,
				Help:      "Rejected descriptor registrations by reason.",
			},
			[]string{"reason"},
		),
		registered: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      ports.MetricRegistered,
				Help:      "Number of evaluators currently registered.",
			},
		),

		// Dispatch metrics.
		dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      ports.MetricDispatches,
				Help:      "Backend evaluations by evaluator and outcome.",
			},
			[]string{"evaluator", "status"},
		),
		scores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      ports.MetricEvaluationScore,
				Help:      "Distribution of scores returned by evaluator backends.",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"evaluator"},
		),
		circuitState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      ports.MetricCircuitState,
				Help:      "Circuit breaker state per evaluator (0 closed, 1 open, 2 half-open).",
			},
			[]string{"evaluator"},
		),

		// General metrics for anything without a dedicated vector.
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "operation_duration_seconds",
				Help:      "Execution time of catalog operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "evaluator", "status"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "operations_total",
				Help:      "Total number of other catalog events.",
			},
			[]string{"metric", "status"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "system_state",
				Help:      "Current values of other catalog gauges.",
			},
			[]string{"metric"},
		),
		observations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "observations",
				Help:      "Other observed values by metric name.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"metric"},
		),
	}
}

// label returns labels[key], or "unknown" when it is missing or empty.
func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.operationLatency.WithLabelValues(
		operation,
		label(labels, "evaluator"),
		label(labels, "status"),
	).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricResolutions:
		pm.resolutions.WithLabelValues(label(labels, "evaluator"), label(labels, "status")).Add(value)
	case ports.MetricDispatches:
		pm.dispatches.WithLabelValues(label(labels, "evaluator"), label(labels, "status")).Add(value)
	case ports.MetricRegistrationFail:
		pm.registrationFailures.WithLabelValues(label(labels, "reason")).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, label(labels, "status")).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricRegistered:
		pm.registered.Set(value)
	case ports.MetricCircuitState:
		pm.circuitState.WithLabelValues(label(labels, "evaluator")).Set(value)
	default:
		pm.systemGauges.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricEvaluationScore:
		pm.scores.WithLabelValues(label(labels, "evaluator")).Observe(value)
	default:
		pm.observations.WithLabelValues(metric).Observe(value)
	}
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
