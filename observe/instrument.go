package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/respcache/store"
)

// InstrumentedStore wraps a store adapter with tracing, metrics, and
// logging. Every Get and Set becomes a span plus a duration sample;
// store errors are logged at warn level because the engine decides
// separately whether they are fatal to the request.
//
// Contract:
//   - Concurrency: safe for concurrent use when the wrapped store is.
//   - Context: propagates context through spans to the wrapped store.
//   - Errors: errors from the wrapped store are recorded and returned
//     unchanged.
type InstrumentedStore struct {
	inner  store.Store
	tracer Tracer
	logger Logger
	opHist metric.Float64Histogram
}

// NewInstrumentedStore wraps a store using the observer's telemetry.
func NewInstrumentedStore(inner store.Store, obs Observer) (*InstrumentedStore, error) {
	if inner == nil {
		return nil, ErrNilStore
	}
	if obs == nil {
		return nil, ErrNilObserver
	}

	opHist, err := obs.Meter().Float64Histogram(
		"cache.store.duration_ms",
		metric.WithDescription("Store operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStore{
		inner:  inner,
		tracer: NewTracer(obs.Tracer()),
		logger: obs.Logger(),
		opHist: opHist,
	}, nil
}

// Get retrieves a value through the wrapped store.
func (s *InstrumentedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, span := s.tracer.StartSpan(ctx, SpanMeta{Op: "get"})
	start := time.Now()

	value, ok, err := s.inner.Get(ctx, key)

	duration := time.Since(start)
	span.SetAttributes(attribute.Bool("cache.hit", ok))
	s.tracer.EndSpan(span, err)
	s.record(ctx, "get", duration, err)

	if err != nil {
		s.logger.Warn(ctx, "store get failed",
			Field{Key: "error", Value: err.Error()},
			Field{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		)
	}

	return value, ok, err
}

// Set stores a value through the wrapped store.
func (s *InstrumentedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := s.tracer.StartSpan(ctx, SpanMeta{Op: "set"})
	start := time.Now()

	err := s.inner.Set(ctx, key, value, ttl)

	duration := time.Since(start)
	s.tracer.EndSpan(span, err)
	s.record(ctx, "set", duration, err)

	if err != nil {
		s.logger.Warn(ctx, "store set failed",
			Field{Key: "error", Value: err.Error()},
			Field{Key: "ttl_s", Value: ttl.Seconds()},
		)
	}

	return err
}

func (s *InstrumentedStore) record(ctx context.Context, op string, duration time.Duration, err error) {
	s.opHist.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.String("cache.op", op),
		attribute.Bool("cache.error", err != nil),
	))
}

// Ensure InstrumentedStore implements store.Store
var _ store.Store = (*InstrumentedStore)(nil)
