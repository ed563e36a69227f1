package warmup

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/Sternrassler/prerender-cache/pkg/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prerender_warmup_retries_total",
		Help: "Total number of warm-up render retries by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "prerender_warmup_retry_backoff_seconds",
		Help:    "Backoff duration before warm-up retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial render).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// forClass scales the backoff for failures that usually need longer to clear.
func (c RetryConfig) forClass(class render.ErrorClass) RetryConfig {
	switch class {
	case render.ErrorClassLaunch:
		// browser start-up contention
		c.InitialBackoff *= 2
	case render.ErrorClassTimeout:
		// origin under load
		c.InitialBackoff *= 3
	}
	if c.MaxBackoff > 0 && c.InitialBackoff > c.MaxBackoff {
		c.InitialBackoff = c.MaxBackoff
	}
	return c
}

// retryWithBackoff runs fn until it succeeds, attempts run out or ctx is done.
// fn returns nil on success. It adds jitter so parallel workers do not retry in lockstep.
// It returns the number of attempts made and the last error.
func retryWithBackoff(ctx context.Context, config RetryConfig, fn func() error) (int, error) {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error
	var backoff time.Duration

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return attempt, lastErr
		}
		if attempt >= config.MaxAttempts {
			break
		}

		class := render.ClassOf(err)
		if attempt == 1 {
			backoff = config.forClass(class).InitialBackoff
		}
		retriesTotal.WithLabelValues(string(class)).Inc()

		// Add jitter (±20% randomness)
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		retryBackoffSeconds.WithLabelValues(string(class)).Observe(jitter.Seconds())

		select {
		case <-ctx.Done():
			return attempt, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if config.MaxBackoff > 0 && backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	return config.MaxAttempts, fmt.Errorf("render failed after %d attempts: %w", config.MaxAttempts, lastErr)
}
