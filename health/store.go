package health

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/jonwraymond/respcache/store"
)

// StoreCheckerConfig configures the store health checker.
type StoreCheckerConfig struct {
	// ProbeKey is the key the round-trip probe writes under. It lives
	// outside the cache key namespace so it can never collide with a
	// real entry. Default: "respcache:health:probe"
	ProbeKey string

	// ProbeTTL is the lifetime of the probe entry.
	// Default: 1 minute
	ProbeTTL time.Duration

	// DegradedAfter marks the store degraded when the round trip takes
	// longer than this. Default: 250ms
	DegradedAfter time.Duration
}

// StoreChecker verifies a cache store by writing a nonce under a
// reserved key and reading it back. It catches not just unreachable
// stores but ones that accept writes and lose them.
type StoreChecker struct {
	config StoreCheckerConfig
	store  store.Store
}

// NewStoreChecker creates a store health checker.
func NewStoreChecker(st store.Store, config ...StoreCheckerConfig) *StoreChecker {
	cfg := StoreCheckerConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.ProbeKey == "" {
		cfg.ProbeKey = "respcache:health:probe"
	}
	if cfg.ProbeTTL <= 0 {
		cfg.ProbeTTL = time.Minute
	}
	if cfg.DegradedAfter <= 0 {
		cfg.DegradedAfter = 250 * time.Millisecond
	}

	return &StoreChecker{config: cfg, store: st}
}

// Name returns "store".
func (c *StoreChecker) Name() string {
	return "store"
}

// Check performs a write-read round trip against the store.
func (c *StoreChecker) Check(ctx context.Context) Result {
	if c.store == nil {
		return Unhealthy("no store configured", store.ErrNilStore)
	}

	start := time.Now()
	nonce := []byte(strconv.FormatInt(start.UnixNano(), 10))

	if err := c.store.Set(ctx, c.config.ProbeKey, nonce, c.config.ProbeTTL); err != nil {
		return Unhealthy("probe write failed", err)
	}

	value, ok, err := c.store.Get(ctx, c.config.ProbeKey)
	if err != nil {
		return Unhealthy("probe read failed", err)
	}
	if !ok || !bytes.Equal(value, nonce) {
		return Unhealthy("probe entry lost or altered", ErrProbeMismatch)
	}

	elapsed := time.Since(start)
	details := map[string]any{"round_trip": elapsed.String()}

	if elapsed > c.config.DegradedAfter {
		return Degraded("store round trip slow").WithDetails(details)
	}
	return Healthy("store round trip ok").WithDetails(details)
}

var _ Checker = (*StoreChecker)(nil)
