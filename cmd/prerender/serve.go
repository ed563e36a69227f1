package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/prerender-cache/pkg/logging"
	"github.com/spf13/cobra"
)

const readHeaderTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var warm bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the prerender HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logging.Setup(cfg.Logging())

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			ln, err := net.Listen("tcp", cfg.Addr())
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
			}
			return serve(ctx, a, ln, warm)
		},
	}

	cmd.Flags().Int("port", 0, "Listen port (overrides PORT)")
	cmd.Flags().BoolVar(&warm, "warm", false, "Warm the cache in the background after startup")
	return cmd
}

// serve runs the HTTP server on ln until ctx is done, then drains in-flight
// requests for up to one render timeout.
func serve(ctx context.Context, a *app, ln net.Listener, warm bool) error {
	srv := &http.Server{
		Handler:           a.handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	a.logger.Info().
		Str("addr", ln.Addr().String()).
		Str("upstream", a.cfg.Upstream).
		Msg("Prerender server listening")

	if warm {
		go func() {
			if _, err := a.warm(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("Cache warm-up aborted")
			}
		}()
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		a.logger.Error().Err(err).Msg("Server failed")
		return err
	case <-ctx.Done():
	}

	a.logger.Info().Msg("Shutting down")

	grace := a.cfg.Render.Timeout.Duration + 5*time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
