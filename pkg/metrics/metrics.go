// Package metrics provides the Prometheus registry and scrape handler for the prerender cache.
// All metrics are defined in their respective packages (cache, render, prerender, server, warmup)
// to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gatherer is the registry /metrics is served from. Collectors register on
// the default registry through promauto.
var Gatherer = prometheus.DefaultGatherer

// Handler serves all registered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - prerender_cache_hits_total (Counter): Cache hits
//   - prerender_cache_misses_total (Counter): Cache misses (including NullStore lookups)
//   - prerender_cache_errors_total{operation} (Counter): Cache backend errors by operation (get, put)
//   - prerender_cache_stored_bytes_total (Counter): Bytes written to the cache
//
// Render Metrics (pkg/render):
//   - prerender_renders_total{result} (Counter): Renders by result (success, failure)
//   - prerender_render_duration_seconds (Histogram): Render duration
//   - prerender_render_failures_total{class} (Counter): Failures by class (launch, navigation, timeout, capture)
//
// Request Metrics (pkg/server, pkg/prerender):
//   - prerender_requests_total{outcome} (Counter): Requests by outcome (skipped, hit, rendered, failed)
//   - prerender_coalesced_total (Counter): Misses that joined an in-flight render
//
// Warm-up Metrics (pkg/warmup):
//   - prerender_warmup_paths_total{outcome} (Counter): Warmed paths by outcome
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(prerender_cache_hits_total[5m])) /
//   (sum(rate(prerender_cache_hits_total[5m])) + sum(rate(prerender_cache_misses_total[5m])))
//
//   # Render Failure Rate
//   rate(prerender_renders_total{result="failure"}[5m]) / rate(prerender_renders_total[5m])
//
//   # P95 Render Latency
//   histogram_quantile(0.95, rate(prerender_render_duration_seconds_bucket[5m]))
