// Package prerender orchestrates policy, cache and renderer for one page request.
package prerender

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/prerender-cache/pkg/cache"
	"github.com/Sternrassler/prerender-cache/pkg/policy"
	"github.com/Sternrassler/prerender-cache/pkg/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCacheTimeout bounds a single cache read or write.
	DefaultCacheTimeout = 2 * time.Second
)

var (
	coalescedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prerender_coalesced_total",
		Help: "Total renders shared with a concurrent request for the same URL",
	})
)

// Outcome is the terminal state of a prerender request.
type Outcome string

const (
	// OutcomeSkipped means the route policy excluded the path.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeHit means the markup came from the cache.
	OutcomeHit Outcome = "hit"

	// OutcomeRendered means the page was rendered and written through.
	OutcomeRendered Outcome = "rendered"

	// OutcomeFailed means the render failed; nothing was cached.
	OutcomeFailed Outcome = "failed"
)

// Result describes how a request ended.
type Result struct {
	Outcome  Outcome
	Request  Request
	Decision policy.Decision

	// Body is the markup for hits and successful renders.
	Body []byte

	// Err is the render failure for OutcomeFailed.
	Err error
}

// Config holds the service configuration.
type Config struct {
	Resolver *policy.Resolver
	Store    cache.Store
	Renderer render.Renderer

	// CacheTimeout bounds each cache operation.
	CacheTimeout time.Duration

	// Coalesce collapses concurrent misses for the same URL into one render.
	Coalesce bool
}

// Service runs the prerender pipeline. It is safe for concurrent use.
type Service struct {
	resolver *policy.Resolver
	store    cache.Store
	renderer render.Renderer

	cacheTimeout time.Duration
	coalesce     bool
	group        singleflight.Group

	logger zerolog.Logger
}

// NewService creates a service. A nil Store means no caching.
func NewService(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("route resolver is required")
	}
	if cfg.Renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if cfg.Store == nil {
		cfg.Store = cache.NullStore{}
	}
	if cfg.CacheTimeout <= 0 {
		cfg.CacheTimeout = DefaultCacheTimeout
	}

	return &Service{
		resolver:     cfg.Resolver,
		store:        cfg.Store,
		renderer:     cfg.Renderer,
		cacheTimeout: cfg.CacheTimeout,
		coalesce:     cfg.Coalesce,
		logger:       logger,
	}, nil
}

// Prerender resolves policy, serves from cache, or renders and writes through.
// It never returns an error: failures are reported as OutcomeFailed.
func (s *Service) Prerender(ctx context.Context, req Request) Result {
	logger := s.logger.With().Str("url", req.TargetURL).Logger()

	decision := s.resolver.Resolve(req.Path)
	result := Result{Request: req, Decision: decision}

	if decision.Skip() {
		logger.Debug().Str("path", req.Path).Msg("Skipping prerender")
		result.Outcome = OutcomeSkipped
		return result
	}

	key := cache.Key(req.TargetURL)

	if body, ok := s.lookup(ctx, key, logger); ok {
		logger.Debug().Str("key", key).Msg("Cache HIT")
		result.Outcome = OutcomeHit
		result.Body = body
		return result
	}

	logger.Debug().
		Str("key", key).
		Str("tier", string(decision.Tier)).
		Msg("Cache MISS, rendering")

	body, err := s.render(ctx, key, req.TargetURL, decision.TTL, logger)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		return result
	}

	result.Outcome = OutcomeRendered
	result.Body = body
	return result
}

// lookup reads the cache. Backend errors count as a miss.
func (s *Service) lookup(ctx context.Context, key string, logger zerolog.Logger) ([]byte, bool) {
	getCtx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	defer cancel()

	body, err := s.store.Get(getCtx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn().Err(err).Str("key", key).Msg("Cache get error, treating as miss")
		}
		return nil, false
	}
	return body, true
}

// render renders the URL and writes the markup through to the cache.
func (s *Service) render(ctx context.Context, key, targetURL string, ttl time.Duration, logger zerolog.Logger) ([]byte, error) {
	if !s.coalesce {
		return s.renderAndStore(ctx, key, targetURL, ttl, logger)
	}

	// The shared render must not die with whichever caller started it.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.renderAndStore(context.WithoutCancel(ctx), key, targetURL, ttl, logger)
	})

	select {
	case res := <-ch:
		if res.Shared {
			coalescedTotal.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, &render.Error{Class: render.ErrorClassNavigation, URL: targetURL, Err: ctx.Err()}
	}
}

func (s *Service) renderAndStore(ctx context.Context, key, targetURL string, ttl time.Duration, logger zerolog.Logger) ([]byte, error) {
	body, err := s.renderer.Render(ctx, targetURL)
	if err != nil {
		logger.Error().Err(err).Msg("Error prerendering")
		return nil, err
	}

	// A finished render is written even if the client already went away.
	putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cacheTimeout)
	defer cancel()

	if err := s.store.Put(putCtx, key, body, ttl); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Failed to cache rendered page")
	} else {
		logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("Cached rendered page")
	}

	return body, nil
}
