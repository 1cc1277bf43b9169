// Package metrics provides Prometheus metrics for ranking recomputations and dataset loads.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricRecomputationsTotal    = "cryptorank_recomputations_total"
	MetricRecomputeDuration      = "cryptorank_recompute_duration_seconds"
	MetricCandidatePoolSize      = "cryptorank_candidate_pool_size"
	MetricRejectedMutationsTotal = "cryptorank_rejected_mutations_total"
	MetricDatasetLoadsTotal      = "cryptorank_dataset_loads_total"
	MetricDatasetRecords         = "cryptorank_dataset_records"
)

// Status constants for dataset loads.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusCached  = "cached"
)

// Metrics contains the Prometheus collectors of the ranking service.
// All methods are safe on a nil receiver so library callers can skip metrics entirely.
type Metrics struct {
	recomputations   *prometheus.CounterVec
	recomputeSeconds *prometheus.HistogramVec
	poolSize         prometheus.Gauge
	rejected         *prometheus.CounterVec
	datasetLoads     *prometheus.CounterVec
	datasetRecords   prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		recomputations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRecomputationsTotal,
				Help: "Total number of ranking recomputations by mode",
			},
			[]string{"mode"},
		),
		recomputeSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRecomputeDuration,
				Help:    "Histogram of ranking recomputation duration in seconds by mode",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
			},
			[]string{"mode"},
		),
		poolSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricCandidatePoolSize,
				Help: "Eligible records in the most recent candidate pool",
			},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRejectedMutationsTotal,
				Help: "Total number of session mutations rejected for invalid input",
			},
			[]string{"operation"},
		),
		datasetLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricDatasetLoadsTotal,
				Help: "Total number of dataset load attempts by source and status",
			},
			[]string{"source", "status"},
		),
		datasetRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricDatasetRecords,
				Help: "Records in the currently loaded dataset",
			},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRecompute records one recomputation
func (m *Metrics) ObserveRecompute(mode string, seconds float64, pool int) {
	if m == nil {
		return
	}
	m.recomputations.WithLabelValues(mode).Inc()
	m.recomputeSeconds.WithLabelValues(mode).Observe(seconds)
	m.poolSize.Set(float64(pool))
}

// IncRejected counts a mutation rejected at the input boundary
func (m *Metrics) IncRejected(operation string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(operation).Inc()
}

// IncDatasetLoad counts a dataset load attempt
func (m *Metrics) IncDatasetLoad(source, status string) {
	if m == nil {
		return
	}
	m.datasetLoads.WithLabelValues(source, status).Inc()
}

// SetDatasetRecords sets the loaded record count
func (m *Metrics) SetDatasetRecords(n int) {
	if m == nil {
		return
	}
	m.datasetRecords.Set(float64(n))
}

// Collectors returns all Prometheus collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.recomputations,
		m.recomputeSeconds,
		m.poolSize,
		m.rejected,
		m.datasetLoads,
		m.datasetRecords,
	}
}
