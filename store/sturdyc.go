package store

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// SturdycConfig holds the configuration for the sturdyc-backed store.
type SturdycConfig struct {
	// Capacity is the maximum number of entries the store can hold.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent
	// access. Higher values improve concurrency at some memory cost.
	// Default: 256
	NumShards int

	// TTL is the client-wide time-to-live for entries. sturdyc expires
	// all entries on this clock; per-write TTLs are bounded by it.
	// Default: 5 minutes
	TTL time.Duration

	// EvictionPercentage is the share of entries evicted when the store
	// reaches capacity, between 1 and 100. Default: 10
	EvictionPercentage int

	// EvictionInterval sets how often expired entries are collected.
	// Zero uses the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultSturdycConfig returns a SturdycConfig with sensible defaults.
func DefaultSturdycConfig() SturdycConfig {
	return SturdycConfig{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// Validate checks the configuration values.
func (c SturdycConfig) Validate() error {
	if c.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if c.NumShards <= 0 {
		return ErrInvalidShards
	}
	if c.TTL <= 0 {
		return ErrInvalidTTL
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return ErrInvalidEviction
	}
	return nil
}

// SturdycStore adapts a sturdyc client to the Store interface. It gives
// the engine a sharded in-process backend with capacity-based eviction.
//
// sturdyc manages expiry with a single client-wide TTL, so the TTL
// passed to Set cannot extend an entry's life beyond SturdycConfig.TTL.
// Entries whose requested TTL is shorter carry their own deadline and
// are filtered out on Get.
type SturdycStore struct {
	client *sturdyc.Client[sturdycEntry]
	ttl    time.Duration
}

type sturdycEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewSturdycStore creates a new sturdyc-backed store.
func NewSturdycStore(cfg SturdycConfig) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []sturdyc.Option
	if cfg.EvictionInterval > 0 {
		opts = append(opts, sturdyc.WithEvictionInterval(cfg.EvictionInterval))
	}

	client := sturdyc.New[sturdycEntry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		opts...,
	)

	return &SturdycStore{client: client, ttl: cfg.TTL}, nil
}

// Get retrieves a value. Returns (nil, false, nil) on miss or expiry.
func (s *SturdycStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}

	entry, ok := s.client.Get(key)
	if !ok {
		return nil, false, nil
	}

	if time.Now().After(entry.expiresAt) {
		s.client.Delete(key)
		return nil, false, nil
	}

	return entry.value, true, nil
}

// Set stores a value. TTL<=0 is a no-op; longer TTLs are bounded by the
// client-wide TTL.
func (s *SturdycStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	if ttl > s.ttl {
		ttl = s.ttl
	}

	s.client.Set(key, sturdycEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// Delete removes a value. Idempotent - no error on miss.
func (s *SturdycStore) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// Ensure SturdycStore implements Store
var _ Store = (*SturdycStore)(nil)
