package stack

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric results.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics holds the engine's operation metrics on a private registry.
// A nil *Metrics records nothing.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates and registers the operation metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nginx_demo",
				Subsystem: "stack",
				Name:      "operations_total",
				Help:      "Total number of resource operations by type, operation and result",
			},
			[]string{"type", "op", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "nginx_demo",
				Subsystem: "stack",
				Name:      "operation_duration_seconds",
				Help:      "Duration of resource operations in seconds, retries included",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
			},
			[]string{"type", "op"},
		),
	}
	m.registry.MustRegister(m.operations, m.duration)
	return m
}

// Registry exposes the registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records one finished operation.
func (m *Metrics) Observe(typ, op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.operations.WithLabelValues(typ, op, result).Inc()
	m.duration.WithLabelValues(typ, op).Observe(d.Seconds())
}

// WriteTextfile writes the metrics in the Prometheus text format, for the
// node exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
