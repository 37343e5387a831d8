package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// Search paths as they appear in metric labels and logs.
const (
	PathIndex    = "index"
	PathFallback = "fallback"
)

// Metrics groups the search-path collectors.
type Metrics struct {
	searches     *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	staleRefs    prometheus.Counter
	indexLatency *prometheus.HistogramVec
	breakerState prometheus.Gauge
}

// NewMetrics registers search metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Total number of product searches by the path that served them",
		}, []string{"path"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_fallback_total",
			Help: "Total number of searches served from the relational store because the index failed",
		}, []string{"reason"}),
		staleRefs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "search_stale_references_total",
			Help: "Total number of index hits whose product no longer exists",
		}),
		indexLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "search_index_duration_seconds",
			Help:    "Duration of search index queries in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		}, []string{"outcome"}),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "search_index_breaker_state",
			Help: "State of the search index circuit breaker (0=closed, 1=half-open, 2=open)",
		}),
	}
	reg.MustRegister(m.searches, m.fallbacks, m.staleRefs, m.indexLatency, m.breakerState)
	return m
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
