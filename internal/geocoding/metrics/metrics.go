package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for location resolution.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	CacheLookups        *prometheus.CounterVec
	CacheLookupDuration *prometheus.HistogramVec
	BackendCalls        *prometheus.CounterVec
	Resolutions         *prometheus.CounterVec
	ResolveDuration     prometheus.Histogram
	PremiumBudgetUsed   prometheus.Gauge
}

// New registers the geocoding metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the geocoding metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geocoding_cache_lookups_total",
			Help: "Geocode cache lookups by store and result (hit, miss, error)",
		}, []string{"store", "result"}),
		CacheLookupDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geocoding_cache_lookup_duration_seconds",
			Help:    "Duration of geocode cache lookups",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"store"}),
		BackendCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geocoding_backend_calls_total",
			Help: "Geocoding backend round trips by backend and outcome",
		}, []string{"backend", "outcome"}),
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geocoding_resolutions_total",
			Help: "Resolved locations by winning strategy, or failed",
		}, []string{"strategy"}),
		ResolveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "geocoding_resolve_duration_seconds",
			Help:    "Duration of Resolve including cache and backend calls",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		PremiumBudgetUsed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "geocoding_premium_budget_used",
			Help: "Premium backend calls consumed in the current UTC day",
		}),
	}
}

// IncrementCacheLookup records a lookup with result hit, miss or error.
func (m *Metrics) IncrementCacheLookup(store, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(store, result).Inc()
}

// ObserveCacheLookup records the duration of a lookup started at start.
func (m *Metrics) ObserveCacheLookup(store string, start time.Time) {
	if m == nil {
		return
	}
	m.CacheLookupDuration.WithLabelValues(store).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementBackendCall(backend, outcome string) {
	if m == nil {
		return
	}
	m.BackendCalls.WithLabelValues(backend, outcome).Inc()
}

// IncrementResolution records the strategy that produced a result, or
// "failed".
func (m *Metrics) IncrementResolution(strategy string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(strategy).Inc()
}

func (m *Metrics) ObserveResolve(start time.Time) {
	if m == nil {
		return
	}
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetPremiumBudgetUsed(used int) {
	if m == nil {
		return
	}
	m.PremiumBudgetUsed.Set(float64(used))
}
