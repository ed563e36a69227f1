// Package warmup pre-renders a list of paths so the first crawler request is a cache hit.
//
// Paths are pushed through the same pipeline the HTTP dispatcher uses, so route
// policy, cache keys and TTLs are identical to live traffic. A bounded worker
// pool keeps concurrent Chrome sessions low.
//
// Example usage:
//
//	w := warmup.New(upstream, service, warmup.DefaultConfig(), logger)
//	report, err := w.Warm(ctx, resolver.StaticPaths())
//
// The warmer:
//   - Distributes paths across a worker pool (default 2 workers)
//   - Retries failed renders with jittered exponential backoff (max 3 attempts)
//   - Reports skipped paths without rendering them
//   - Counts outcomes per path and logs progress
package warmup
