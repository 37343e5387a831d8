package indexsync

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Synchronization paths as they appear in metric labels.
const (
	PathInline  = "inline"
	PathQueue   = "queue"
	PathReindex = "reindex"
)

// Metrics groups the index synchronization collectors.
type Metrics struct {
	synced          *prometheus.CounterVec
	failures        *prometheus.CounterVec
	reindexRuns     *prometheus.CounterVec
	reindexDuration prometheus.Histogram
}

// NewMetrics registers synchronization metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		synced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "index_sync_documents_total",
			Help: "Total number of documents written to the search index",
		}, []string{"path"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "index_sync_failures_total",
			Help: "Total number of documents that could not be written to the search index",
		}, []string{"path"}),
		reindexRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "index_reindex_runs_total",
			Help: "Total number of bulk reindex runs by result",
		}, []string{"result"}),
		reindexDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "index_reindex_duration_seconds",
			Help:    "Duration of bulk reindex runs in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	reg.MustRegister(m.synced, m.failures, m.reindexRuns, m.reindexDuration)
	return m
}

// RecordFailure counts a document that could not be synchronized on path.
func (m *Metrics) RecordFailure(path string) {
	m.failures.WithLabelValues(path).Inc()
}
