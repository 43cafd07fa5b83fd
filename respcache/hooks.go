package respcache

import "context"

// SessionIDHook resolves the caller's session identifier. Empty string
// means the caller is anonymous. An error fails the request: a hook
// that rejects a malformed credential must never be downgraded to "no
// session", which would expose private results as if they were public.
type SessionIDHook func(ctx context.Context, req *Request) (string, error)

// ExtraKeyDataHook supplies additional cache key data for the request.
// The returned value must be JSON-representable.
type ExtraKeyDataHook func(ctx context.Context, req *Request) (any, error)

// PredicateHook gates reading from or writing to the cache for one
// request. An error fails the request.
type PredicateHook func(ctx context.Context, req *Request) (bool, error)

// Hooks is the caller-supplied configuration of optional behavior.
// Every field may be nil; absence is a first-class state the write
// policy inspects (a private-scoped result with no SessionID hook
// configured is a misconfiguration, not an anonymous caller).
type Hooks struct {
	// SessionID resolves the caller's session. Nil means the engine
	// has no way to distinguish callers.
	SessionID SessionIDHook

	// ExtraKeyData contributes extra request-identity data to the
	// cache key.
	ExtraKeyData ExtraKeyDataHook

	// ShouldRead, when it returns false, skips the store lookup while
	// still resolving session state for the later write path.
	ShouldRead PredicateHook

	// ShouldWrite, when it returns false, skips persisting the
	// response.
	ShouldWrite PredicateHook
}
