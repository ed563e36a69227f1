package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// KeyPrefix namespaces prerender entries in a shared Redis key space.
const KeyPrefix = "prerender:"

// Key returns the cache key for a fully-qualified target URL.
// Format: prerender:<sha256 hex>
//
// Example:
//
//	prerender:2f6e0a2c... for "https://example.com/about"
func Key(fullURL string) string {
	sum := sha256.Sum256([]byte(fullURL))
	return KeyPrefix + hex.EncodeToString(sum[:])
}
