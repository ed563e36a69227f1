package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")
)

// Store is a key/value store for rendered markup with per-entry expiry.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the stored markup, or ErrCacheMiss if there is none.
	// Any other error means the backend could not answer.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key for ttl. A non-positive ttl stores nothing.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases the backend connection.
	Close() error
}

// NullStore is the Store used when no cache backend is available.
// Get always misses and Put discards the value.
type NullStore struct{}

var _ Store = NullStore{}

// Get always returns ErrCacheMiss.
func (NullStore) Get(context.Context, string) ([]byte, error) {
	CacheMisses.Inc()
	return nil, ErrCacheMiss
}

// Put reports success without storing anything.
func (NullStore) Put(context.Context, string, []byte, time.Duration) error {
	return nil
}

// Close is a no-op.
func (NullStore) Close() error { return nil }
