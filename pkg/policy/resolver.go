// Package policy classifies request paths into cache tiers.
package policy

import (
	"strings"
	"time"
)

// Tier is the cache class a path falls into.
type Tier string

const (
	// TierSkip paths are never rendered or cached.
	TierSkip Tier = "skip"

	// TierStatic paths are long-lived pages such as /about.
	TierStatic Tier = "static"

	// TierDynamic paths change often (listings, blog posts).
	TierDynamic Tier = "dynamic"

	// TierDefault applies to everything else.
	TierDefault Tier = "default"
)

// Default TTLs per tier.
const (
	DefaultStaticTTL  = 24 * time.Hour
	DefaultDynamicTTL = 30 * time.Minute
	DefaultTTL        = time.Hour
)

// Decision is the outcome of resolving a path.
type Decision struct {
	Tier Tier
	TTL  time.Duration
}

// Skip reports whether the path must not be prerendered.
func (d Decision) Skip() bool {
	return d.Tier == TierSkip
}

// Rules holds the route configuration.
type Rules struct {
	// SkipPrefixes are path prefixes that are never prerendered (e.g. "/api/").
	SkipPrefixes []string

	// StaticPaths match exactly, or when followed directly by a query string.
	StaticPaths []string

	// DynamicPrefixes are path prefixes cached with DynamicTTL.
	DynamicPrefixes []string

	StaticTTL  time.Duration
	DynamicTTL time.Duration
	DefaultTTL time.Duration
}

// DefaultRules returns the route rules of a typical SPA deployment.
func DefaultRules() Rules {
	return Rules{
		SkipPrefixes: []string{"/api/", "/admin/", "/cdn-cgi/"},
		StaticPaths:  []string{"/", "/about", "/contact", "/products"},
		StaticTTL:    DefaultStaticTTL,
		DynamicTTL:   DefaultDynamicTTL,
		DefaultTTL:   DefaultTTL,
	}
}

// Resolver maps paths to decisions. It is immutable and safe for concurrent use.
type Resolver struct {
	rules Rules
}

// New creates a resolver. The rule slices are copied.
func New(rules Rules) *Resolver {
	rules.SkipPrefixes = append([]string(nil), rules.SkipPrefixes...)
	rules.StaticPaths = append([]string(nil), rules.StaticPaths...)
	rules.DynamicPrefixes = append([]string(nil), rules.DynamicPrefixes...)
	return &Resolver{rules: rules}
}

// Resolve classifies path. Precedence: skip prefix, static path, dynamic prefix, default.
func (r *Resolver) Resolve(path string) Decision {
	for _, prefix := range r.rules.SkipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return Decision{Tier: TierSkip}
		}
	}

	for _, static := range r.rules.StaticPaths {
		if path == static || strings.HasPrefix(path, static+"?") {
			return Decision{Tier: TierStatic, TTL: r.rules.StaticTTL}
		}
	}

	for _, prefix := range r.rules.DynamicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return Decision{Tier: TierDynamic, TTL: r.rules.DynamicTTL}
		}
	}

	return Decision{Tier: TierDefault, TTL: r.rules.DefaultTTL}
}

// StaticPaths returns a copy of the configured static paths.
func (r *Resolver) StaticPaths() []string {
	return append([]string(nil), r.rules.StaticPaths...)
}
