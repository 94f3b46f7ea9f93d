package metrics_test

import (
	"testing"
	"time"

	"github.com/poverty-pockets/pockets-backend/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveFetch("population", "ok", 120*time.Millisecond)
	m.ObserveFetch("income", "failed", time.Second)
	m.ObserveFetch("income", "failed", time.Second)
	m.AddSkipped("population", 3)
	m.AddSkipped("population", 0)
	m.SetJoined("tracts", 1588)
	m.SetAdopted(42)
	m.ObserveLoad(4 * time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchOutcome.WithLabelValues("population", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FetchOutcome.WithLabelValues("income", "failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsSkipped.WithLabelValues("population")))
	assert.Equal(t, 1588.0, testutil.ToFloat64(m.JoinedRecords.WithLabelValues("tracts")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.AdoptedTracts))
	assert.Equal(t, 1, testutil.CollectAndCount(m.LoadLatency))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveFetch("population", "ok", time.Millisecond)
		m.AddSkipped("population", 1)
		m.SetJoined("zips", 1)
		m.SetAdopted(1)
		m.ObserveLoad(time.Second)
	})
}
