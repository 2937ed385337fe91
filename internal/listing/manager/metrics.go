package manager

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments manager operations. A nil *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	conflicts  prometheus.Counter
	snapshots  *prometheus.CounterVec
	cached     prometheus.Gauge
}

// NewMetrics creates the manager metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_listing_operations_total",
				Help: "Total number of listing manager operations",
			},
			[]string{"operation", "result"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketplace_listing_operation_duration_seconds",
				Help:    "Duration of listing manager operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		conflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "marketplace_listing_conflicts_total",
				Help: "Revision conflicts retried while updating listings",
			},
		),
		snapshots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_listing_snapshots_total",
				Help: "Store snapshots received, by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		cached: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketplace_listings_cached",
				Help: "Number of listings in the manager cache",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.operations, m.latency, m.conflicts, m.snapshots, m.cached)
	}
	return m
}

func (m *Metrics) observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.latency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) conflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *Metrics) snapshot(source string, applied bool) {
	if m == nil {
		return
	}
	outcome := "applied"
	if !applied {
		outcome = "discarded"
	}
	m.snapshots.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) setCached(n int) {
	if m == nil {
		return
	}
	m.cached.Set(float64(n))
}
