package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a store key.
const MaxKeyLength = 512

// Sentinel errors for store operations.
var (
	ErrNilStore   = errors.New("store: store is nil")
	ErrInvalidKey = errors.New("store: key is invalid")
	ErrKeyTooLong = errors.New("store: key exceeds max length")
)

// Configuration errors.
var (
	ErrInvalidCapacity = errors.New("store: capacity must be greater than 0")
	ErrInvalidShards   = errors.New("store: num shards must be greater than 0")
	ErrInvalidTTL      = errors.New("store: ttl must be greater than 0")
	ErrInvalidEviction = errors.New("store: eviction percentage must be between 1 and 100")
)

// Store is the key-value store adapter the engine reads and writes
// through. The engine namespaces its keys before they reach a Store,
// so implementations never need to partition engine traffic themselves.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: Get returns (nil, false, nil) on a plain miss; the error is
//   reserved for store-level failures (I/O, transport), which the engine
//   treats distinctly from misses.
type Store interface {
	// Get retrieves a stored value. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. TTL<=0 means no caching.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ValidateKey checks if a key is valid for storage.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
