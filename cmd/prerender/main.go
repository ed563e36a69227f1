package main

import (
	"fmt"
	"os"

	"github.com/Sternrassler/prerender-cache/pkg/config"
	"github.com/spf13/cobra"
)

var configFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "prerender",
		Short:         "Prerender cache for single-page applications",
		Long:          "Render SPA pages in headless Chrome for crawlers and cache the markup in Redis",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("upstream", "", "SPA base URL (overrides "+config.EnvUpstream+")")
	rootCmd.PersistentFlags().String("redis", "", "Redis URL or host:port (overrides "+config.EnvRedisURL+")")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd(), warmCmd())
	return rootCmd
}

// loadConfig layers command-line flags over file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("upstream") {
		cfg.Upstream, _ = flags.GetString("upstream")
	}
	if flags.Changed("redis") {
		cfg.Redis.URL, _ = flags.GetString("redis")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
