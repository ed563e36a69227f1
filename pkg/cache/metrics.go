package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prerender_cache_hits_total",
			Help: "Total number of prerender cache hits",
		},
	)

	// CacheMisses tracks cache misses, including every lookup against the null store
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prerender_cache_misses_total",
			Help: "Total number of prerender cache misses",
		},
	)

	// CacheErrors tracks backend errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prerender_cache_errors_total",
			Help: "Total number of cache backend errors",
		},
		[]string{"operation"}, // "get", "set"
	)

	// CacheStoredBytes tracks bytes written to the backend
	CacheStoredBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prerender_cache_stored_bytes_total",
			Help: "Total bytes of rendered markup written to the cache",
		},
	)
)
