// Package config loads the prerender cache configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. Command-line flags are applied by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/prerender-cache/pkg/cache"
	"github.com/Sternrassler/prerender-cache/pkg/logging"
	"github.com/Sternrassler/prerender-cache/pkg/policy"
	"github.com/Sternrassler/prerender-cache/pkg/prerender"
	"github.com/Sternrassler/prerender-cache/pkg/render"
	"github.com/Sternrassler/prerender-cache/pkg/warmup"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvUpstream      = "SPA_URL"
	EnvPort          = "PORT"
	EnvRedisURL      = "REDIS_URL"
	EnvRenderTimeout = "RENDER_TIMEOUT"
	EnvChromePath    = "CHROME_PATH"
	EnvLogLevel      = "LOG_LEVEL"
)

// DefaultUpstream is the placeholder origin used when nothing is configured.
const DefaultUpstream = "https://yourdomain.com"

// Config is the complete service configuration.
type Config struct {
	Upstream string       `yaml:"upstream"`
	Port     int          `yaml:"port"`
	Redis    RedisConfig  `yaml:"redis"`
	Render   RenderConfig `yaml:"render"`
	TTL      TTLConfig    `yaml:"ttl"`
	Routes   RoutesConfig `yaml:"routes"`
	Log      LogConfig    `yaml:"log"`
	Warmup   WarmupConfig `yaml:"warmup"`
}

// RedisConfig configures the cache backend.
type RedisConfig struct {
	// URL is a redis:// URL or host:port. Empty disables caching.
	URL          string   `yaml:"url"`
	PingTimeout Duration `yaml:"ping_timeout"`
	OpTimeout    Duration `yaml:"op_timeout"`
}

// RenderConfig configures headless Chrome.
type RenderConfig struct {
	Viewport    ViewportConfig `yaml:"viewport"`
	Timeout     Duration       `yaml:"timeout"`
	SettleDelay Duration       `yaml:"settle_delay"`
	UserAgent   string         `yaml:"user_agent"`
	ExecPath    string         `yaml:"exec_path"`
	Coalesce    bool           `yaml:"coalesce"`
}

// ViewportConfig is the browser window size.
type ViewportConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// TTLConfig holds the cache lifetime per route tier.
type TTLConfig struct {
	Static  Duration `yaml:"static"`
	Dynamic Duration `yaml:"dynamic"`
	Default Duration `yaml:"default"`
}

// RoutesConfig holds the route policy.
type RoutesConfig struct {
	Skip    []string `yaml:"skip"`
	Static  []string `yaml:"static"`
	Dynamic []string `yaml:"dynamic"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// WarmupConfig configures cache warm-up.
type WarmupConfig struct {
	Concurrency int      `yaml:"concurrency"`
	MaxAttempts int      `yaml:"max_attempts"`
	Backoff     Duration `yaml:"backoff"`

	// Paths to warm. Empty means the static routes.
	Paths []string `yaml:"paths"`
}

// Default returns the built-in configuration.
func Default() *Config {
	rules := policy.DefaultRules()
	ro := render.DefaultOptions()
	wc := warmup.DefaultConfig()

	return &Config{
		Upstream: DefaultUpstream,
		Port:     3000,
		Redis: RedisConfig{
			PingTimeout: Duration{cache.DefaultPingTimeout},
			OpTimeout:    Duration{prerender.DefaultCacheTimeout},
		},
		Render: RenderConfig{
			Viewport:    ViewportConfig{Width: ro.Viewport.Width, Height: ro.Viewport.Height},
			Timeout:     Duration{ro.Timeout},
			SettleDelay: Duration{ro.SettleDelay},
			UserAgent:   ro.UserAgent,
		},
		TTL: TTLConfig{
			Static:  Duration{rules.StaticTTL},
			Dynamic: Duration{rules.DynamicTTL},
			Default: Duration{rules.DefaultTTL},
		},
		Routes: RoutesConfig{
			Skip:   rules.SkipPrefixes,
			Static: rules.StaticPaths,
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
		Warmup: WarmupConfig{
			Concurrency: wc.Concurrency,
			MaxAttempts: wc.Retry.MaxAttempts,
			Backoff:     Duration{wc.Retry.InitialBackoff},
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if any)
// and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Upstream = getEnv(EnvUpstream, c.Upstream)
	c.Redis.URL = getEnv(EnvRedisURL, c.Redis.URL)
	c.Render.ExecPath = getEnv(EnvChromePath, c.Render.ExecPath)
	c.Log.Level = getEnv(EnvLogLevel, c.Log.Level)

	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		c.Port = port
	}

	if v := os.Getenv(EnvRenderTimeout); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRenderTimeout, err)
		}
		c.Render.Timeout = Duration{d}
	}

	return nil
}

// Validate checks the configuration and normalizes the upstream URL.
func (c *Config) Validate() error {
	c.Upstream = strings.TrimRight(strings.TrimSpace(c.Upstream), "/")
	u, err := url.Parse(c.Upstream)
	if err != nil || c.Upstream == "" {
		return fmt.Errorf("upstream: invalid URL %q", c.Upstream)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("upstream: %q must be an absolute http(s) URL", c.Upstream)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("upstream: %q must not carry a query or fragment", c.Upstream)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port: %d out of range 1..65535", c.Port)
	}

	if c.Render.Viewport.Width <= 0 || c.Render.Viewport.Height <= 0 {
		return fmt.Errorf("render.viewport: %dx%d must be positive", c.Render.Viewport.Width, c.Render.Viewport.Height)
	}
	if c.Render.Timeout.Duration <= 0 {
		return errors.New("render.timeout must be positive")
	}
	if c.Render.SettleDelay.Duration < 0 {
		return errors.New("render.settle_delay must not be negative")
	}

	if c.Redis.PingTimeout.Duration <= 0 {
		return errors.New("redis.ping_timeout must be positive")
	}
	if c.Redis.OpTimeout.Duration <= 0 {
		return errors.New("redis.op_timeout must be positive")
	}

	for name, ttl := range map[string]time.Duration{
		"ttl.static":  c.TTL.Static.Duration,
		"ttl.dynamic": c.TTL.Dynamic.Duration,
		"ttl.default": c.TTL.Default.Duration,
	} {
		if ttl <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	for _, group := range [][]string{c.Routes.Skip, c.Routes.Static, c.Routes.Dynamic, c.Warmup.Paths} {
		for _, p := range group {
			if !strings.HasPrefix(p, "/") {
				return fmt.Errorf("routes: %q must start with /", p)
			}
		}
	}

	if err := logging.ValidateLevel(logging.LogLevel(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if c.Warmup.Concurrency < 1 {
		return fmt.Errorf("warmup.concurrency: %d must be at least 1", c.Warmup.Concurrency)
	}
	if c.Warmup.MaxAttempts < 1 {
		return fmt.Errorf("warmup.max_attempts: %d must be at least 1", c.Warmup.MaxAttempts)
	}
	if c.Warmup.Backoff.Duration <= 0 {
		return errors.New("warmup.backoff must be positive")
	}

	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Rules returns the route policy.
func (c *Config) Rules() policy.Rules {
	return policy.Rules{
		SkipPrefixes:    c.Routes.Skip,
		StaticPaths:     c.Routes.Static,
		DynamicPrefixes: c.Routes.Dynamic,
		StaticTTL:       c.TTL.Static.Duration,
		DynamicTTL:      c.TTL.Dynamic.Duration,
		DefaultTTL:      c.TTL.Default.Duration,
	}
}

// RenderOptions returns the Chrome renderer options.
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		Viewport:    render.Viewport{Width: c.Render.Viewport.Width, Height: c.Render.Viewport.Height},
		UserAgent:   c.Render.UserAgent,
		Timeout:     c.Render.Timeout.Duration,
		SettleDelay: c.Render.SettleDelay.Duration,
		ExecPath:    c.Render.ExecPath,
	}
}

// CacheOptions returns the cache backend options.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		URL:          c.Redis.URL,
		PingTimeout: c.Redis.PingTimeout.Duration,
	}
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// WarmupConfig returns the warmer configuration.
func (c *Config) WarmupConfig() warmup.Config {
	cfg := warmup.DefaultConfig()
	cfg.Concurrency = c.Warmup.Concurrency
	cfg.Retry.MaxAttempts = c.Warmup.MaxAttempts
	cfg.Retry.InitialBackoff = c.Warmup.Backoff.Duration
	if cfg.Retry.MaxBackoff < cfg.Retry.InitialBackoff {
		cfg.Retry.MaxBackoff = cfg.Retry.InitialBackoff
	}
	return cfg
}

// WarmupPaths returns the paths to warm: the configured list or the static routes.
func (c *Config) WarmupPaths() []string {
	if len(c.Warmup.Paths) > 0 {
		return append([]string(nil), c.Warmup.Paths...)
	}
	return append([]string(nil), c.Routes.Static...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
