package respcache

import "github.com/jonwraymond/respcache/key"

// RequestState is the per-request session state shared between the
// read and write entry points. Lookup populates it exactly once; Finish
// only reads it. It lives for one request and is never pooled or
// shared across requests.
type RequestState struct {
	sessionID string
	baseKey   key.BaseKey
	resolved  bool
}

// SessionID returns the resolved session id and whether one is present.
func (s *RequestState) SessionID() (string, bool) {
	if s == nil {
		return "", false
	}
	return s.sessionID, s.sessionID != ""
}

// BaseKey returns the request's base cache key.
func (s *RequestState) BaseKey() key.BaseKey {
	if s == nil {
		return key.BaseKey{}
	}
	return s.baseKey
}

// Resolved reports whether Lookup has populated this state.
func (s *RequestState) Resolved() bool {
	return s != nil && s.resolved
}
