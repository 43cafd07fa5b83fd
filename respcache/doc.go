// Package respcache implements the session-aware response caching
// engine: deterministic cache key derivation, tiered lookup across
// anonymous, authenticated, and private entries, and a write policy
// that persists responses in the background without blocking the
// request path.
//
// The engine never caches errors, never stores private data under an
// anonymous identity, and treats session hook failures as request
// failures rather than silently downgrading the caller to anonymous.
package respcache
