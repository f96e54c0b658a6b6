package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IngestBatch(1000)
	m.IngestBatch(500)
	m.IngestDone("ok")
	m.ReasonDone("ok", 20*time.Millisecond, 7)
	m.RuleSetResolved("embedded")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ingestBatches))
	assert.Equal(t, 1500.0, testutil.ToFloat64(m.ingestQuads))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestRequests.WithLabelValues("ok")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.reasonAdded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ruleSets.WithLabelValues("embedded")))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IngestBatch(1)
		m.IngestDone("ok")
		m.ReasonDone("error", time.Second, 0)
		m.RuleSetResolved("none")
	})
}
