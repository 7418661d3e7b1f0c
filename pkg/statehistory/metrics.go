package statehistory

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transition outcomes used as the "outcome" label.
const (
	OutcomeCommitted = "committed"
	OutcomeNoop      = "noop"
	OutcomeInvalid   = "invalid"
	OutcomeBlocked   = "blocked"
	OutcomeFailed    = "failed"
)

// Metrics exposes transition counters and latencies.
// Labels stay low-cardinality: no object ids, no state tokens.
type Metrics struct {
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	effectFails *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statehistory_transitions_total",
			Help: "Total number of requested state transitions, by object type, field and outcome.",
		}, []string{"object_type", "field", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statehistory_transition_duration_seconds",
			Help:    "Duration of state transitions from resolution to commit, by object type and field.",
			Buckets: prometheus.DefBuckets,
		}, []string{"object_type", "field"}),
		effectFails: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "statehistory_effect_failures_total",
			Help: "Total number of post-commit effect failures, by object type and field.",
		}, []string{"object_type", "field"}),
	}
}

func (m *Metrics) observe(objectType, field, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(objectType, field, outcome).Inc()
	if outcome == OutcomeCommitted {
		m.duration.WithLabelValues(objectType, field).Observe(time.Since(started).Seconds())
	}
}

func (m *Metrics) effectFailed(objectType, field string) {
	if m == nil {
		return
	}
	m.effectFails.WithLabelValues(objectType, field).Inc()
}
