package store

import (
	"context"
	"time"
)

// PrefixStore wraps a Store with an additional key prefix. It is useful
// when several engines, or an engine and unrelated code, share one
// backing store and need separate namespaces beyond the engine's own.
type PrefixStore struct {
	inner  Store
	prefix string
}

// NewPrefixStore creates a store that prepends prefix to every key.
func NewPrefixStore(inner Store, prefix string) *PrefixStore {
	return &PrefixStore{inner: inner, prefix: prefix}
}

// Get retrieves a value under the prefixed key.
func (s *PrefixStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.inner == nil {
		return nil, false, ErrNilStore
	}
	return s.inner.Get(ctx, s.prefix+key)
}

// Set stores a value under the prefixed key.
func (s *PrefixStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.inner == nil {
		return ErrNilStore
	}
	return s.inner.Set(ctx, s.prefix+key, value, ttl)
}

// Ensure PrefixStore implements Store
var _ Store = (*PrefixStore)(nil)
