// Package server exposes the prerender pipeline over HTTP.
package server

import (
	"context"
	"net/http"

	"github.com/Sternrassler/prerender-cache/pkg/prerender"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Response headers.
const (
	HeaderCache     = "X-Prerender-Cache"
	CacheHit        = "HIT"
	CacheMiss       = "MISS"
	contentTypeHTML = "text/html; charset=utf-8"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prerender_requests_total",
		Help: "Total prerender requests by outcome",
	}, []string{"outcome"})
)

// Pipeline is what the dispatcher needs from the prerender service.
type Pipeline interface {
	Prerender(ctx context.Context, req prerender.Request) prerender.Result
}

// Dispatcher is the HTTP entry point for every prerendered path.
type Dispatcher struct {
	upstream string
	pipeline Pipeline
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher rendering pages of upstream.
func NewDispatcher(upstream string, pipeline Pipeline, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		upstream: upstream,
		pipeline: pipeline,
		logger:   logger,
	}
}

// ServeHTTP prerenders the requested page and translates the result into a response.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := prerender.RequestFromHTTP(d.upstream, r)

	d.logger.Info().
		Str("url", req.TargetURL).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("Prerendering")

	res := d.pipeline.Prerender(r.Context(), req)
	requestsTotal.WithLabelValues(string(res.Outcome)).Inc()

	switch res.Outcome {
	case prerender.OutcomeSkipped:
		http.Error(w, "Not found", http.StatusNotFound)

	case prerender.OutcomeHit:
		writeHTML(w, http.StatusOK, CacheHit, res.Body)

	case prerender.OutcomeRendered:
		writeHTML(w, http.StatusOK, CacheMiss, res.Body)

	default:
		writeHTML(w, http.StatusInternalServerError, CacheMiss, FallbackPage(req.TargetURL))
	}
}

func writeHTML(w http.ResponseWriter, status int, cacheStatus string, body []byte) {
	h := w.Header()
	h.Set("Content-Type", contentTypeHTML)
	h.Set(HeaderCache, cacheStatus)
	w.WriteHeader(status)
	w.Write(body)
}
