// Package session provides ready-made session identity resolvers for
// the caching engine. A resolver is just a respcache.SessionIDHook:
// it maps an incoming request to an opaque session identifier, or to
// the empty string for anonymous callers.
//
// Two resolvers are included. FromContext reads an identifier that
// upstream middleware already attached to the request context with
// WithSessionID. JWTResolver extracts and validates a bearer token
// from a request header and derives the identifier from a claim.
//
// Resolution is fail-closed: a credential that is present but cannot
// be validated yields an error, never an anonymous identity.
package session
