package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Sternrassler/prerender-cache/pkg/cache"
	"github.com/Sternrassler/prerender-cache/pkg/config"
	"github.com/Sternrassler/prerender-cache/pkg/logging"
	"github.com/Sternrassler/prerender-cache/pkg/policy"
	"github.com/Sternrassler/prerender-cache/pkg/prerender"
	"github.com/Sternrassler/prerender-cache/pkg/render"
	"github.com/Sternrassler/prerender-cache/pkg/server"
	"github.com/Sternrassler/prerender-cache/pkg/warmup"
	"github.com/rs/zerolog"
)

// app holds the wired components shared by serve and warm.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	store    cache.Store
	resolver *policy.Resolver
	service  *prerender.Service
}

// newApp wires store, renderer and service. A nil renderer selects headless Chrome.
func newApp(ctx context.Context, cfg *config.Config, renderer render.Renderer) (*app, error) {
	logger := logging.NewLogger("prerender")

	if renderer == nil {
		renderer = render.NewChromeRenderer(cfg.RenderOptions(), logging.NewLogger("render"))
	}

	store := cache.Open(ctx, cfg.CacheOptions(), logging.NewLogger("cache"))
	resolver := policy.New(cfg.Rules())

	service, err := prerender.NewService(prerender.Config{
		Resolver:     resolver,
		Store:        store,
		Renderer:     renderer,
		CacheTimeout: cfg.Redis.OpTimeout.Duration,
		Coalesce:     cfg.Render.Coalesce,
	}, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create service: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		resolver: resolver,
		service:  service,
	}, nil
}

// handler returns the HTTP surface.
func (a *app) handler() http.Handler {
	logger := logging.NewLogger("server")
	return server.NewRouter(
		server.NewDispatcher(a.cfg.Upstream, a.service, logger),
		server.NewHealth(),
		logger,
	)
}

// warm pre-renders paths, defaulting to the configured warm-up list.
func (a *app) warm(ctx context.Context, paths []string) (warmup.Report, error) {
	if len(paths) == 0 {
		paths = a.cfg.WarmupPaths()
	}
	w := warmup.New(a.cfg.Upstream, a.service, a.cfg.WarmupConfig(), logging.NewLogger("warmup"))
	return w.Warm(ctx, paths)
}

func (a *app) Close() error {
	return a.store.Close()
}
