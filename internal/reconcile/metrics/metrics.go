package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for record reconciliation.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Decisions        *prometheus.CounterVec
	CandidateCounts  prometheus.Histogram
	CandidateFailure prometheus.Counter
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_decisions_total",
			Help: "Reconciliation decisions by action and relationship",
		}, []string{"action", "relationship"}),
		CandidateCounts: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "reconcile_candidates",
			Help:    "Number of stored candidates compared per record",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 25},
		}),
		CandidateFailure: factory.NewCounter(prometheus.CounterOpts{
			Name: "reconcile_candidate_lookup_failures_total",
			Help: "Candidate queries that failed and were treated as empty",
		}),
	}
}

func (m *Metrics) IncrementDecision(action, relationship string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(action, relationship).Inc()
}

func (m *Metrics) ObserveCandidates(n int) {
	if m == nil {
		return
	}
	m.CandidateCounts.Observe(float64(n))
}

func (m *Metrics) IncrementCandidateFailure() {
	if m == nil {
		return
	}
	m.CandidateFailure.Inc()
}
