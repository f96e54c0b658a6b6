// Package metrics defines the Prometheus collectors for ingestion and
// reasoning. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quadflow"

// Metrics groups every collector the pipeline records into.
type Metrics struct {
	// ingestRequests counts finished loads.
	// Labels: outcome (ok, transport, format, parse, aborted)
	ingestRequests *prometheus.CounterVec
	ingestBatches  prometheus.Counter
	ingestQuads    prometheus.Counter

	// reasonRuns counts reasoning calls.
	// Labels: outcome (ok, unavailable, error)
	reasonRuns     *prometheus.CounterVec
	reasonDuration prometheus.Histogram
	reasonAdded    prometheus.Counter

	// ruleSets counts rule set resolutions.
	// Labels: source (cache, embedded, dir, remote, none)
	ruleSets *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		ingestRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "requests_total",
			Help:      "Ingestion requests by outcome",
		}, []string{"outcome"}),
		ingestBatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "batches_total",
			Help:      "Statement batches delivered to consumers",
		}),
		ingestQuads: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "quads_total",
			Help:      "Statements delivered to consumers",
		}),
		reasonRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reason",
			Name:      "runs_total",
			Help:      "Reasoning runs by outcome",
		}, []string{"outcome"}),
		reasonDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reason",
			Name:      "duration_seconds",
			Help:      "Reasoning run latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		reasonAdded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reason",
			Name:      "added_total",
			Help:      "Statements added by reasoning",
		}),
		ruleSets: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reason",
			Name:      "rule_sets_total",
			Help:      "Rule set resolutions by source",
		}, []string{"source"}),
	}
}

// IngestDone records the outcome of one load.
func (m *Metrics) IngestDone(outcome string) {
	if m == nil {
		return
	}
	m.ingestRequests.WithLabelValues(outcome).Inc()
}

// IngestBatch records one delivered batch of n statements.
func (m *Metrics) IngestBatch(n int) {
	if m == nil {
		return
	}
	m.ingestBatches.Inc()
	m.ingestQuads.Add(float64(n))
}

// ReasonDone records one reasoning run.
func (m *Metrics) ReasonDone(outcome string, d time.Duration, added int) {
	if m == nil {
		return
	}
	m.reasonRuns.WithLabelValues(outcome).Inc()
	m.reasonDuration.Observe(d.Seconds())
	m.reasonAdded.Add(float64(added))
}

// RuleSetResolved records where a rule set came from.
func (m *Metrics) RuleSetResolved(source string) {
	if m == nil {
		return
	}
	m.ruleSets.WithLabelValues(source).Inc()
}
