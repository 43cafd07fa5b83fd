package key

// SessionMode classifies the visibility scope of a cache entry.
type SessionMode int

const (
	// ModeNone marks entries produced for fully anonymous callers.
	ModeNone SessionMode = iota
	// ModePrivate marks entries tied to exactly one session identity.
	ModePrivate
	// ModeAuthenticated marks public entries produced in an
	// authenticated context. They may differ from anonymous entries
	// (localization, feature gating) without being personal.
	ModeAuthenticated
)

// String returns the string representation of the mode.
func (m SessionMode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModePrivate:
		return "private"
	case ModeAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// BaseKey is the session-independent portion of a cache key.
// It is built once per request and never mutated afterward.
type BaseKey struct {
	// Document is the serialized request document text.
	Document string

	// Operation is the operation name. Empty when the request
	// carries an anonymous operation.
	Operation string

	// Variables are the request variables. May be nil.
	Variables map[string]any

	// Extra is caller-supplied additional key data. May be nil.
	Extra any
}

// ContextualKey is the session-dependent portion of a cache key.
// It is built fresh for every lookup or write attempt.
type ContextualKey struct {
	// Mode is the session mode of the entry.
	Mode SessionMode

	// SessionID is set only when Mode is ModePrivate.
	SessionID string
}

// CacheKey is a complete cache key: base plus context.
type CacheKey struct {
	Base       BaseKey
	Contextual ContextualKey
}
