package testutils

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/go-gavel-catalog/internal/ports"
)

var _ ports.MetricsCollector = (*RecordingMetrics)(nil)

// MetricSample is one recorded call on a RecordingMetrics.
type MetricSample struct {
	Kind   string
	Name   string
	Value  float64
	Labels map[string]string
}

// RecordingMetrics implements ports.MetricsCollector by remembering every
// call, so tests can assert on what a component reported.
// It is safe for concurrent use.
type RecordingMetrics struct {
	mu      sync.Mutex
	samples []MetricSample
}

// NewRecordingMetrics creates an empty collector.
func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{}
}

func (m *RecordingMetrics) record(kind, name string, value float64, labels map[string]string) {
	copied := make(map[string]string, len(labels))
	for k, v := range labels {
		copied[k] = v
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, MetricSample{Kind: kind, Name: name, Value: value, Labels: copied})
}

// RecordLatency records the duration in seconds.
func (m *RecordingMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	m.record("latency", operation, duration.Seconds(), labels)
}

// RecordCounter records a counter increment.
func (m *RecordingMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	m.record("counter", metric, value, labels)
}

// RecordGauge records a gauge update.
func (m *RecordingMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	m.record("gauge", metric, value, labels)
}

// RecordHistogram records a histogram observation.
func (m *RecordingMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	m.record("histogram", metric, value, labels)
}

// Samples returns a copy of every recorded call in order.
func (m *RecordingMetrics) Samples() []MetricSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MetricSample(nil), m.samples...)
}

// Named returns the recorded calls for metric name.
func (m *RecordingMetrics) Named(name string) []MetricSample {
	var out []MetricSample
	for _, s := range m.Samples() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// Sum adds up the values recorded for name whose labels include every
// pair in match.
func (m *RecordingMetrics) Sum(name string, match map[string]string) float64 {
	var total float64
	for _, s := range m.Named(name) {
		if labelsMatch(s.Labels, match) {
			total += s.Value
		}
	}
	return total
}

// Last returns the most recent value recorded for name.
func (m *RecordingMetrics) Last(name string) (float64, bool) {
	samples := m.Named(name)
	if len(samples) == 0 {
		return 0, false
	}
	return samples[len(samples)-1].Value, true
}

// Names lists the distinct metric names recorded, sorted.
func (m *RecordingMetrics) Names() []string {
	seen := make(map[string]struct{})
	for _, s := range m.Samples() {
		seen[s.Name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func labelsMatch(labels, match map[string]string) bool {
	for k, v := range match {
		if !strings.EqualFold(labels[k], v) {
			return false
		}
	}
	return true
}
