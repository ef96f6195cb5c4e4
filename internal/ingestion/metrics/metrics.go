package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for batch ingestion.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	BatchSize       prometheus.Histogram
	BatchDuration   prometheus.Histogram
	RecordOutcomes  *prometheus.CounterVec
	PublishFailures prometheus.Counter
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingestion_batch_size",
			Help:    "Records per ingested batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingestion_batch_duration_seconds",
			Help:    "Duration of ProcessBatch",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		RecordOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestion_records_total",
			Help: "Ingested records by outcome (create, update, skip, failed)",
		}, []string{"outcome"}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ingestion_publish_failures_total",
			Help: "Record events that could not be published",
		}),
	}
}

func (m *Metrics) ObserveBatch(size int, start time.Time) {
	if m == nil {
		return
	}
	m.BatchSize.Observe(float64(size))
	m.BatchDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementOutcome(outcome string) {
	if m == nil {
		return
	}
	m.RecordOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementPublishFailure() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}
