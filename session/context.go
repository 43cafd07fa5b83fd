package session

import (
	"context"

	"github.com/jonwraymond/respcache/respcache"
)

// Context keys for session-related values.
type contextKey int

const sessionIDKey contextKey = iota

// WithSessionID returns a new context with the given session id
// attached. Middleware that authenticates requests upstream of the
// cache uses this to hand the identity down.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext retrieves the session id from the context.
// Returns empty string if none is present.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// FromContext returns a hook that resolves the session id previously
// attached with WithSessionID. Requests whose context carries no id
// are treated as anonymous.
func FromContext() respcache.SessionIDHook {
	return func(ctx context.Context, _ *respcache.Request) (string, error) {
		return SessionIDFromContext(ctx), nil
	}
}
