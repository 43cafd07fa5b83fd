// Package key models response cache keys and their deterministic
// serialization to store keys.
//
// A cache key has two parts: a BaseKey derived purely from request
// identity (document, operation, variables, extra data) and a
// ContextualKey derived from session state at lookup or write time.
package key
