package render

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for render operations.
var (
	rendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prerender_renders_total",
		Help: "Total headless renders by result",
	}, []string{"result"}) // "success", "failure"

	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prerender_render_duration_seconds",
		Help:    "Headless render duration in seconds, browser launch included",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	renderFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prerender_render_failures_total",
		Help: "Total render failures by error class",
	}, []string{"class"})
)
