// Package metrics exposes Prometheus counters and gauges for the filter
// engine's decision traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts every ShouldBlock decision, labeled by outcome.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "urlfilter_requests_total",
			Help: "Total number of filtering decisions, labeled by action.",
		},
		[]string{"action"},
	)

	// RulesLoaded reports the current engine rule count.
	RulesLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "urlfilter_rules_loaded",
			Help: "Number of compiled rules currently held by the engine.",
		},
	)

	// DecisionDuration measures time spent scanning rules for one decision.
	DecisionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "urlfilter_decision_duration_seconds",
			Help: "Duration of a single ShouldBlock scan.",
		},
	)
)

// Observe records one decision's outcome and timing.
func Observe(blocked bool, elapsed time.Duration) {
	action := "allow"
	if blocked {
		action = "block"
	}
	RequestsTotal.WithLabelValues(action).Inc()
	DecisionDuration.Observe(elapsed.Seconds())
}

// SetRulesLoaded updates the rules-loaded gauge.
func SetRulesLoaded(n int) {
	RulesLoaded.Set(float64(n))
}
