// Package cache stores rendered page markup with a Redis backend.
//
// The package exposes a small Store abstraction with two implementations:
//
// - RedisStore keeps markup in Redis with backend-enforced expiry
// - NullStore never stores anything and always misses
//
// Which one a process uses is decided once at startup by Open. When no Redis
// address is configured, or the connectivity ping fails, Open returns a
// NullStore and the service keeps running in always-miss mode.
//
// # Basic Usage
//
//	store := cache.Open(ctx, cache.Options{URL: "redis://localhost:6379"}, logger)
//	defer store.Close()
//
//	key := cache.Key("https://example.com/about")
//
//	html, err := store.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// render, then write through
//		_ = store.Put(ctx, key, rendered, 24*time.Hour)
//	}
//
// # Keys
//
// Keys are "prerender:" followed by the hex SHA-256 digest of the full target
// URL. URLs are not normalized: "/p?a=1&b=2" and "/p?b=2&a=1" are distinct.
//
// # Metrics
//
//   - prerender_cache_hits_total - Cache hits
//   - prerender_cache_misses_total - Cache misses
//   - prerender_cache_errors_total{operation} - Backend errors
//   - prerender_cache_stored_bytes_total - Bytes written to the backend
package cache
