package respcache

import "time"

// Scope declares who may observe a cached response.
type Scope int

const (
	// ScopePublic marks results safe to share across callers.
	ScopePublic Scope = iota
	// ScopePrivate marks results tied to the caller's identity.
	ScopePrivate
)

// String returns the string representation of the scope.
func (s Scope) String() string {
	switch s {
	case ScopePublic:
		return "public"
	case ScopePrivate:
		return "private"
	default:
		return "unknown"
	}
}

// CachePolicy is the scope and freshness directive attached to a
// computed response. It is authored by the computation and consumed,
// read-only, by the write policy.
type CachePolicy struct {
	// Scope declares the visibility of the result.
	Scope Scope

	// MaxAge is how long the result may be served from cache.
	// Zero or negative disables caching for the response.
	MaxAge time.Duration
}
