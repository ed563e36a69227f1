package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/prerender-cache/pkg/cache"
	"github.com/Sternrassler/prerender-cache/pkg/logging"
	"github.com/Sternrassler/prerender-cache/pkg/prerender"
	"github.com/spf13/cobra"
)

func warmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warm [paths...]",
		Short: "Pre-render paths into the cache",
		Long:  "Render the given paths (default: warmup.paths or the static routes) and store them in the cache",
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

			warnIfNoCache(a)

			return runWarm(ctx, a, args, cmd.OutOrStdout())
		},
	}
}

// warnIfNoCache reports whether the app fell back to NullStore, either because
// no Redis URL was set or because Redis was unreachable at startup.
func warnIfNoCache(a *app) bool {
	if _, ok := a.store.(cache.NullStore); !ok {
		return false
	}
	a.logger.Warn().Msg("No cache available, warmed pages will not be kept")
	return true
}

// runWarm warms paths and prints one line per path plus a summary.
func runWarm(ctx context.Context, a *app, paths []string, out io.Writer) error {
	report, err := a.warm(ctx, paths)

	for _, res := range report.Results {
		line := fmt.Sprintf("%-9s %s", res.Outcome, res.Path)
		if res.Err != nil {
			line += "  " + res.Err.Error()
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "%d rendered, %d cached, %d skipped, %d failed in %s\n",
		report.Counts[prerender.OutcomeRendered],
		report.Counts[prerender.OutcomeHit],
		report.Counts[prerender.OutcomeSkipped],
		report.Failed(),
		report.Duration.Round(time.Millisecond),
	)

	if err != nil {
		return err
	}
	if n := report.Failed(); n > 0 {
		return fmt.Errorf("%d paths failed to render", n)
	}
	return nil
}
