package rails

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallsTotal counts provider calls by final result, after the retry loop
	// has run its course.
	CallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossrail_rail_calls_total",
		Help: "Provider calls by adapter, operation and result",
	}, []string{"provider", "operation", "result"})

	// FallbackAdvances counts how often a US push had to move past the
	// preferred rail.
	FallbackAdvances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossrail_rail_fallback_advances_total",
		Help: "Number of times a push advanced its rail fallback chain",
	})
)

// ObserveCall records the outcome of one adapter operation.
func ObserveCall(provider string, op Operation, err error) {
	result := "success"
	if err != nil {
		result = string(Category(err))
	}
	CallsTotal.WithLabelValues(provider, string(op), result).Inc()
}
