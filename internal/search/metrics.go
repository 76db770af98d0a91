package search

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricSearchTotal           = "search_total"
	MetricSearchErrors          = "search_errors_total"
	MetricSearchDuration        = "search_duration_seconds"
	MetricSearchLastResultCount = "search_last_result_count"
)

// Metrics contains Prometheus metrics for trip search.
// All operations are thread-safe.
type Metrics struct {
	searchTotal     prometheus.Counter
	searchErrors    prometheus.Counter
	searchDuration  prometheus.Histogram
	lastResultCount prometheus.Gauge
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		searchTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSearchTotal,
			Help: "Total number of trip search operations",
		}),
		searchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSearchErrors,
			Help: "Total number of failed trip search operations",
		}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricSearchDuration,
			Help:    "Histogram of trip search duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}),
		lastResultCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricSearchLastResultCount,
			Help: "Number of ranked trips returned by the most recent search",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.searchTotal,
		m.searchErrors,
		m.searchDuration,
		m.lastResultCount,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveSearch records one completed search: its duration, whether it
// failed, and how many results it returned.
func (m *Metrics) ObserveSearch(seconds float64, resultCount int, err error) {
	m.searchTotal.Inc()
	if err != nil {
		m.searchErrors.Inc()
		return
	}
	m.searchDuration.Observe(seconds)
	m.lastResultCount.Set(float64(resultCount))
}
