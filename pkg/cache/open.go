package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// DefaultPingTimeout bounds the startup PING.
	DefaultPingTimeout = 2 * time.Second
)

// Options selects and configures the cache backend.
type Options struct {
	// URL is either a redis:// URL or a bare host:port address.
	// Empty disables caching.
	URL string

	// PingTimeout bounds the connectivity check done at startup.
	PingTimeout time.Duration
}

// Connect dials Redis and verifies the connection with a PING.
// The returned client is closed again if the ping fails.
func Connect(ctx context.Context, opts Options) (*RedisStore, error) {
	redisOpts, err := parseRedisURL(opts.URL)
	if err != nil {
		return nil, err
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}

	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", redisOpts.Addr, err)
	}

	return NewRedisStore(client), nil
}

// Open returns the Store for this process. It never fails: a missing address
// or an unreachable backend yields a NullStore.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) Store {
	if strings.TrimSpace(opts.URL) == "" {
		logger.Info().Msg("No Redis configured, running without cache")
		return NullStore{}
	}

	store, err := Connect(ctx, opts)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis not available, running without cache")
		return NullStore{}
	}

	logger.Info().Str("redis", redactURL(opts.URL)).Msg("Redis connected for caching")
	return store
}

func parseRedisURL(raw string) (*redis.Options, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}

	return &redis.Options{Addr: raw}, nil
}

// redactURL drops credentials before the address is logged.
func redactURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = rest[at+1:]
	}
	return scheme + "://" + rest
}
