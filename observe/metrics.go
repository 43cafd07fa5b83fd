package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records cache lookup and write outcomes.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records one tiered lookup with its outcome.
	RecordLookup(ctx context.Context, mode string, hit bool, duration time.Duration, err error)

	// RecordWrite records one background store write.
	RecordWrite(ctx context.Context, mode string, duration time.Duration, err error)

	// RecordWriteSkip records a write the policy declined to issue.
	RecordWriteSkip(ctx context.Context, reason string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	lookupCount  metric.Int64Counter
	lookupErrors metric.Int64Counter
	lookupHist   metric.Float64Histogram
	writeCount   metric.Int64Counter
	writeErrors  metric.Int64Counter
	writeHist    metric.Float64Histogram
	writeSkips   metric.Int64Counter
}

// NewMetrics creates a Metrics instance backed by the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	lookupCount, err := meter.Int64Counter(
		"cache.lookup.total",
		metric.WithDescription("Total number of cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	lookupErrors, err := meter.Int64Counter(
		"cache.lookup.errors",
		metric.WithDescription("Total number of cache lookup store errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	lookupHist, err := meter.Float64Histogram(
		"cache.lookup.duration_ms",
		metric.WithDescription("Cache lookup duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	writeCount, err := meter.Int64Counter(
		"cache.write.total",
		metric.WithDescription("Total number of background cache writes"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, err
	}

	writeErrors, err := meter.Int64Counter(
		"cache.write.errors",
		metric.WithDescription("Total number of failed background cache writes"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	writeHist, err := meter.Float64Histogram(
		"cache.write.duration_ms",
		metric.WithDescription("Background cache write duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	writeSkips, err := meter.Int64Counter(
		"cache.write.skips",
		metric.WithDescription("Total number of writes declined by policy"),
		metric.WithUnit("{skip}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		lookupCount:  lookupCount,
		lookupErrors: lookupErrors,
		lookupHist:   lookupHist,
		writeCount:   writeCount,
		writeErrors:  writeErrors,
		writeHist:    writeHist,
		writeSkips:   writeSkips,
	}, nil
}

// RecordLookup records one tiered lookup with its outcome.
func (m *metricsImpl) RecordLookup(ctx context.Context, mode string, hit bool, duration time.Duration, err error) {
	opt := metric.WithAttributes(
		attribute.String("cache.mode", mode),
		attribute.Bool("cache.hit", hit),
	)

	m.lookupCount.Add(ctx, 1, opt)
	if err != nil {
		m.lookupErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.mode", mode)))
	}
	m.lookupHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordWrite records one background store write.
func (m *metricsImpl) RecordWrite(ctx context.Context, mode string, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("cache.mode", mode))

	m.writeCount.Add(ctx, 1, opt)
	if err != nil {
		m.writeErrors.Add(ctx, 1, opt)
	}
	m.writeHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordWriteSkip records a write the policy declined to issue.
func (m *metricsImpl) RecordWriteSkip(ctx context.Context, reason string) {
	m.writeSkips.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.skip_reason", reason)))
}

// nopMetrics is a metrics implementation that does nothing.
type nopMetrics struct{}

// NopMetrics returns a Metrics implementation that records nothing.
func NopMetrics() Metrics {
	return nopMetrics{}
}

func (nopMetrics) RecordLookup(context.Context, string, bool, time.Duration, error) {}
func (nopMetrics) RecordWrite(context.Context, string, time.Duration, error)        {}
func (nopMetrics) RecordWriteSkip(context.Context, string)                          {}

// Ensure implementations satisfy Metrics
var (
	_ Metrics = (*metricsImpl)(nil)
	_ Metrics = nopMetrics{}
)
