// Package metrics provides observability for the transfer saga.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the saga-level Prometheus collectors. All methods are
// nil-safe so wiring metrics stays optional in tests.
type Metrics struct {
	// Terminal outcomes by status and corridor (e.g. "US-CA").
	Outcomes *prometheus.CounterVec

	// Step latencies by step name.
	StepDuration *prometheus.HistogramVec

	// Full saga latency by path (domestic or crossborder).
	SagaDuration *prometheus.HistogramVec
}

// New creates and registers the saga metrics.
func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crossrail_transfer_outcomes_total",
			Help: "Terminal transfer outcomes by status and corridor",
		}, []string{"status", "corridor"}),

		StepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crossrail_transfer_step_duration_seconds",
			Help:    "Duration of individual saga steps including retries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"step"}),

		SagaDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crossrail_transfer_saga_duration_seconds",
			Help:    "End-to-end saga duration by execution path",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"path"}),
	}
}

// IncrementOutcome records a terminal transfer status.
func (m *Metrics) IncrementOutcome(status, corridor string) {
	if m != nil {
		m.Outcomes.WithLabelValues(status, corridor).Inc()
	}
}

// ObserveStep records the duration of one saga step.
func (m *Metrics) ObserveStep(step string, d time.Duration) {
	if m != nil {
		m.StepDuration.WithLabelValues(step).Observe(d.Seconds())
	}
}

// ObserveSaga records the end-to-end duration of one saga invocation.
func (m *Metrics) ObserveSaga(path string, d time.Duration) {
	if m != nil {
		m.SagaDuration.WithLabelValues(path).Observe(d.Seconds())
	}
}
