package warmup

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sternrassler/prerender-cache/pkg/prerender"
	"github.com/Sternrassler/prerender-cache/pkg/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	pathsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prerender_warmup_paths_total",
		Help: "Total warmed paths by outcome",
	}, []string{"outcome"})
)

// errRenderFailed marks a failed result that carried no error of its own.
var errRenderFailed = errors.New("render failed")

// Config holds warmer configuration.
type Config struct {
	// Concurrency is the number of paths rendered in parallel.
	Concurrency int

	// Retry controls how failed renders are retried.
	Retry RetryConfig
}

// DefaultConfig returns a configuration that keeps at most two browsers busy.
func DefaultConfig() Config {
	return Config{
		Concurrency: 2,
		Retry:       DefaultRetryConfig(),
	}
}

// Pipeline is what the warmer needs from the prerender service.
type Pipeline interface {
	Prerender(ctx context.Context, req prerender.Request) prerender.Result
}

// PathResult is the outcome for one warmed path.
type PathResult struct {
	Path     string
	Outcome  prerender.Outcome
	Attempts int
	Err      error
}

// Report summarizes a warm-up run. Results keep the input order.
type Report struct {
	Results  []PathResult
	Counts   map[prerender.Outcome]int
	Duration time.Duration
}

// Failed returns the number of paths that could not be rendered.
func (r Report) Failed() int {
	return r.Counts[prerender.OutcomeFailed]
}

// Warmer renders paths into the cache ahead of traffic.
type Warmer struct {
	upstream string
	pipeline Pipeline
	config   Config
	logger   zerolog.Logger
}

type job struct {
	index int
	path  string
}

type jobResult struct {
	index  int
	result PathResult
}

// New creates a warmer for pages of upstream.
func New(upstream string, pipeline Pipeline, config Config, logger zerolog.Logger) *Warmer {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConfig().Concurrency
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry = DefaultRetryConfig()
	}

	return &Warmer{
		upstream: upstream,
		pipeline: pipeline,
		config:   config,
		logger:   logger,
	}
}

// Warm renders every path using a worker pool. Paths already cached count as hits.
// If ctx ends early the report holds what finished and the context error is returned.
func (w *Warmer) Warm(ctx context.Context, paths []string) (Report, error) {
	start := time.Now()
	report := Report{
		Results: make([]PathResult, len(paths)),
		Counts:  make(map[prerender.Outcome]int),
	}

	w.logger.Info().
		Int("paths", len(paths)).
		Int("concurrency", w.config.Concurrency).
		Msg("Starting cache warm-up")

	queue := make(chan job)
	results := make(chan jobResult, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < w.config.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			processed := 0
			for j := range queue {
				results <- jobResult{index: j.index, result: w.warmPath(ctx, j.path)}
				processed++
			}
			w.logger.Debug().
				Int("worker_id", workerID).
				Int("paths_processed", processed).
				Msg("Worker completed")
		}(i)
	}

	go func() {
		defer close(queue)
		for i, path := range paths {
			select {
			case queue <- job{index: i, path: path}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	done := make([]bool, len(paths))
	for r := range results {
		report.Results[r.index] = r.result
		report.Counts[r.result.Outcome]++
		done[r.index] = true
		pathsTotal.WithLabelValues(string(r.result.Outcome)).Inc()
	}
	for i, ok := range done {
		if !ok {
			report.Results[i] = PathResult{Path: paths[i], Outcome: prerender.OutcomeFailed, Err: ctx.Err()}
			report.Counts[prerender.OutcomeFailed]++
		}
	}
	report.Duration = time.Since(start)

	w.logger.Info().
		Int("hit", report.Counts[prerender.OutcomeHit]).
		Int("rendered", report.Counts[prerender.OutcomeRendered]).
		Int("skipped", report.Counts[prerender.OutcomeSkipped]).
		Int("failed", report.Counts[prerender.OutcomeFailed]).
		Dur("duration", report.Duration).
		Msg("Cache warm-up complete")

	return report, ctx.Err()
}

// warmPath runs one path through the pipeline, retrying failed renders.
func (w *Warmer) warmPath(ctx context.Context, path string) PathResult {
	if err := ctx.Err(); err != nil {
		return PathResult{Path: path, Outcome: prerender.OutcomeFailed, Err: err}
	}

	req, err := prerender.NewRequest(w.upstream, path)
	if err != nil {
		return PathResult{Path: path, Outcome: prerender.OutcomeFailed, Err: err}
	}

	var last prerender.Result
	attempts, err := retryWithBackoff(ctx, w.config.Retry, func() error {
		last = w.pipeline.Prerender(ctx, req)
		if last.Outcome != prerender.OutcomeFailed {
			return nil
		}
		if last.Err == nil {
			return errRenderFailed
		}

		w.logger.Warn().
			Err(last.Err).
			Str("url", req.TargetURL).
			Str("error_class", string(render.ClassOf(last.Err))).
			Msg("Warm-up render failed")
		return last.Err
	})

	return PathResult{
		Path:     path,
		Outcome:  last.Outcome,
		Attempts: attempts,
		Err:      err,
	}
}
