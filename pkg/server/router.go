package server

import (
	"net/http"
	"time"

	"github.com/Sternrassler/prerender-cache/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// NewRouter wires the HTTP surface:
//
//	GET /health   liveness
//	GET /metrics  Prometheus metrics
//	GET /*        prerender
//
// HEAD is routed like GET. /health and /metrics are matched before the
// wildcard for both methods and are never prerendered.
func NewRouter(dispatcher http.Handler, health http.Handler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	metricsHandler := metrics.Handler()
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		r.Method(method, "/health", health)
		r.Method(method, "/metrics", metricsHandler)
	}

	r.Method(http.MethodGet, "/*", dispatcher)
	r.Method(http.MethodHead, "/*", dispatcher)

	return r
}

// requestLogger logs one line per request once the response is written.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Str("cache", ww.Header().Get(HeaderCache)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}
