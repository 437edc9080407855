// Package metrics exposes Prometheus instrumentation for the query engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueryDuration tracks engine query latency per operation and backend.
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "proplens",
		Subsystem: "engine",
		Name:      "query_duration_seconds",
		Help:      "Duration of engine queries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "backend"})

	// QueryErrors counts failed engine queries per operation and backend.
	QueryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proplens",
		Subsystem: "engine",
		Name:      "query_errors_total",
		Help:      "Total number of failed engine queries.",
	}, []string{"operation", "backend"})

	// CacheHits counts response cache hits and misses per endpoint.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proplens",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Response cache lookups by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
)
