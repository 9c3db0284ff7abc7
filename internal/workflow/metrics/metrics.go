package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the workflow engine. All methods are
// nil-safe so tests can pass a nil *Metrics without registering collectors.
type Metrics struct {
	// Transition attempts by entity type and outcome (committed, denied, busy)
	Transitions *prometheus.CounterVec

	// Gate denials by reason
	Denials *prometheus.CounterVec

	// Compare-and-swap version conflicts (including ones resolved by retry)
	VersionConflicts prometheus.Counter

	// End-to-end RequestTransition latency
	TransitionLatency prometheus.Histogram
}

// New creates a Metrics instance with all workflow metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgate_transitions_total",
			Help: "Total transition attempts by entity type and outcome",
		}, []string{"entity_type", "outcome"}),

		Denials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flowgate_denials_total",
			Help: "Total gate denials by reason",
		}, []string{"reason"}),

		VersionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flowgate_version_conflicts_total",
			Help: "Total optimistic concurrency conflicts observed",
		}),

		TransitionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowgate_transition_duration_seconds",
			Help:    "Duration of RequestTransition including retries",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementTransition records a transition attempt outcome.
func (m *Metrics) IncrementTransition(entityType, outcome string) {
	if m != nil {
		m.Transitions.WithLabelValues(entityType, outcome).Inc()
	}
}

// IncrementDenial records a gate denial by reason.
func (m *Metrics) IncrementDenial(reason string) {
	if m != nil {
		m.Denials.WithLabelValues(reason).Inc()
	}
}

// IncrementVersionConflict records one compare-and-swap miss.
func (m *Metrics) IncrementVersionConflict() {
	if m != nil {
		m.VersionConflicts.Inc()
	}
}

// ObserveTransitionLatency records the duration of a transition attempt.
func (m *Metrics) ObserveTransitionLatency(d time.Duration) {
	if m != nil {
		m.TransitionLatency.Observe(d.Seconds())
	}
}
