// Package metrics exposes prometheus instrumentation for data loads.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides observability for source fetches and joins.
type Metrics struct {
	// Fetch latencies by source
	FetchLatency *prometheus.HistogramVec

	// Fetch outcomes by source and outcome (ok, failed, cached)
	FetchOutcome *prometheus.CounterVec

	// Rows skipped by adapters for shape mismatches or missing keys
	RowsSkipped *prometheus.CounterVec

	// Canonical records in the last load by dataset (tracts, zips)
	JoinedRecords *prometheus.GaugeVec

	// Adopted tracts in the last load
	AdoptedTracts prometheus.Gauge

	// Overall load latency
	LoadLatency prometheus.Histogram
}

// New creates a Metrics instance registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pockets_source_fetch_duration_seconds",
			Help:    "Duration of census source fetches by source",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),

		FetchOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pockets_source_fetch_total",
			Help: "Census source fetches by source and outcome",
		}, []string{"source", "outcome"}),

		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pockets_rows_skipped_total",
			Help: "Rows dropped by source adapters",
		}, []string{"source"}),

		JoinedRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pockets_joined_records",
			Help: "Canonical records in the current dataset",
		}, []string{"dataset"}),

		AdoptedTracts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pockets_adopted_tracts",
			Help: "Tracts classified as adopted in the current load",
		}),

		LoadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pockets_load_duration_seconds",
			Help:    "Duration of a full data load including fetches",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.FetchLatency, m.FetchOutcome, m.RowsSkipped, m.JoinedRecords, m.AdoptedTracts, m.LoadLatency)
	}
	return m
}

// ObserveFetch records one source fetch.
func (m *Metrics) ObserveFetch(source, outcome string, d time.Duration) {
	if m != nil {
		m.FetchLatency.WithLabelValues(source).Observe(d.Seconds())
		m.FetchOutcome.WithLabelValues(source, outcome).Inc()
	}
}

// AddSkipped records rows dropped by an adapter.
func (m *Metrics) AddSkipped(source string, n int) {
	if m != nil && n > 0 {
		m.RowsSkipped.WithLabelValues(source).Add(float64(n))
	}
}

// SetJoined records the size of a joined dataset.
func (m *Metrics) SetJoined(dataset string, n int) {
	if m != nil {
		m.JoinedRecords.WithLabelValues(dataset).Set(float64(n))
	}
}

// SetAdopted records the adopted tract count.
func (m *Metrics) SetAdopted(n int) {
	if m != nil {
		m.AdoptedTracts.Set(float64(n))
	}
}

// ObserveLoad records the total load duration.
func (m *Metrics) ObserveLoad(d time.Duration) {
	if m != nil {
		m.LoadLatency.Observe(d.Seconds())
	}
}
