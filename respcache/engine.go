package respcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonwraymond/respcache/key"
	"github.com/jonwraymond/respcache/observe"
	"github.com/jonwraymond/respcache/store"
)

// Engine decides, per request, whether a previously computed response
// may be reused, under which key to look it up given session context,
// and whether and where to persist a fresh one.
//
// Contract:
//   - Concurrency: safe for concurrent use; all per-request mutable
//     state lives in the RequestState returned by Lookup.
//   - Ordering: Lookup must run before Finish for the same request.
//     Finish reads the state Lookup resolved and never mutates it.
//   - Errors: hook failures fail the request (fail-closed). Store read
//     failures propagate unless fail-open reads are enabled. Store
//     write failures are diagnostics only.
type Engine struct {
	store        store.Store
	serializer   key.Serializer
	hooks        Hooks
	logger       observe.Logger
	metrics      observe.Metrics
	writer       *Writer
	writerCfg    WriterConfig
	hookTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
	failOpen     bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithSerializer replaces the default cache key serializer.
func WithSerializer(s key.Serializer) Option {
	return func(e *Engine) {
		if s != nil {
			e.serializer = s
		}
	}
}

// WithHooks installs the caller-supplied hooks.
func WithHooks(h Hooks) Option {
	return func(e *Engine) {
		e.hooks = h
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l observe.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithHookTimeout bounds each hook invocation. Zero disables the bound.
func WithHookTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.hookTimeout = d
	}
}

// WithStoreReadTimeout bounds each store read. Zero disables the bound.
func WithStoreReadTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.readTimeout = d
	}
}

// WithStoreWriteTimeout bounds each background store write. Zero
// disables the bound.
func WithStoreWriteTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.writeTimeout = d
	}
}

// WithFailOpenReads treats store read failures as misses instead of
// failing the request. The default propagates them: masking a store
// outage as a string of cache misses silently inflates load on the
// computation.
func WithFailOpenReads() Option {
	return func(e *Engine) {
		e.failOpen = true
	}
}

// WithWriterConfig configures the background writer.
func WithWriterConfig(cfg WriterConfig) Option {
	return func(e *Engine) {
		e.writerCfg = cfg
	}
}

// New creates an Engine over the given store.
func New(st store.Store, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, store.ErrNilStore
	}

	e := &Engine{
		store:      st,
		serializer: key.NewDefaultSerializer(),
		logger:     observe.NopLogger(),
		metrics:    observe.NopMetrics(),
		writerCfg:  DefaultWriterConfig(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.writer = NewWriter(e.writerCfg)
	return e, nil
}

// Close drains in-flight background writes. Call it on shutdown so
// accepted writes are not lost.
func (e *Engine) Close() error {
	return e.writer.Close()
}

// Lookup is the read-path entry point, invoked once per read-eligible
// request before the computation runs. It always resolves session
// state and the base cache key, even when the ShouldRead hook declines
// the lookup, so the write path can still run later. A non-nil
// Response means the computation can be skipped entirely.
func (e *Engine) Lookup(ctx context.Context, req *Request) (*Response, *RequestState, error) {
	if req == nil {
		return nil, nil, ErrNilRequest
	}

	st := &RequestState{}

	if e.hooks.SessionID != nil {
		var sid string
		err := withTimeout(ctx, e.hookTimeout, func(ctx context.Context) error {
			var herr error
			sid, herr = e.hooks.SessionID(ctx, req)
			return herr
		})
		if err != nil {
			return nil, nil, fmt.Errorf("respcache: session hook: %w", err)
		}
		st.sessionID = sid
	}

	var extra any
	if e.hooks.ExtraKeyData != nil {
		err := withTimeout(ctx, e.hookTimeout, func(ctx context.Context) error {
			var herr error
			extra, herr = e.hooks.ExtraKeyData(ctx, req)
			return herr
		})
		if err != nil {
			return nil, nil, fmt.Errorf("respcache: extra key data hook: %w", err)
		}
	}

	st.baseKey = key.BaseKey{
		Document:  req.Document,
		Operation: req.Operation,
		Variables: req.Variables,
		Extra:     extra,
	}
	st.resolved = true

	if e.hooks.ShouldRead != nil {
		var read bool
		err := withTimeout(ctx, e.hookTimeout, func(ctx context.Context) error {
			var herr error
			read, herr = e.hooks.ShouldRead(ctx, req)
			return herr
		})
		if err != nil {
			return nil, nil, fmt.Errorf("respcache: should-read hook: %w", err)
		}
		if !read {
			return nil, st, nil
		}
	}

	// Anonymous callers have exactly one place to look.
	if st.sessionID == "" {
		resp, err := e.lookupEntry(ctx, st.baseKey, key.ContextualKey{Mode: key.ModeNone})
		return resp, st, err
	}

	// A logged-in user's personalized result must never be shadowed by
	// a stale public one, so the private entry is consulted first.
	resp, err := e.lookupEntry(ctx, st.baseKey, key.ContextualKey{
		Mode:      key.ModePrivate,
		SessionID: st.sessionID,
	})
	if err != nil || resp != nil {
		return resp, st, err
	}

	resp, err = e.lookupEntry(ctx, st.baseKey, key.ContextualKey{Mode: key.ModeAuthenticated})
	return resp, st, err
}

// lookupEntry performs one store read under the given contextual key.
// A nil Response with nil error is a miss.
func (e *Engine) lookupEntry(ctx context.Context, base key.BaseKey, ck key.ContextualKey) (*Response, error) {
	storeKey, err := e.serializer.StoreKey(key.CacheKey{Base: base, Contextual: ck})
	if err != nil {
		return nil, fmt.Errorf("respcache: serialize lookup key: %w", err)
	}

	start := time.Now()
	var value []byte
	var ok bool
	err = withTimeout(ctx, e.readTimeout, func(ctx context.Context) error {
		var gerr error
		value, ok, gerr = e.store.Get(ctx, storeKey)
		return gerr
	})
	e.metrics.RecordLookup(ctx, ck.Mode.String(), ok, time.Since(start), err)

	if err != nil {
		if e.failOpen {
			e.logger.Warn(ctx, "store read failed, treating as miss",
				observe.Field{Key: "mode", Value: ck.Mode.String()},
				observe.Field{Key: "error", Value: err.Error()},
			)
			return nil, nil
		}
		return nil, fmt.Errorf("respcache: store read: %w", err)
	}

	if !ok {
		return nil, nil
	}

	var payload cachedPayload
	if uerr := json.Unmarshal(value, &payload); uerr != nil {
		e.logger.Warn(ctx, "corrupt cache entry ignored",
			observe.Field{Key: "mode", Value: ck.Mode.String()},
			observe.Field{Key: "error", Value: uerr.Error()},
		)
		return nil, nil
	}

	e.logger.Debug(ctx, "cache hit",
		observe.Field{Key: "mode", Value: ck.Mode.String()},
	)
	return &Response{Data: payload.Data}, nil
}

// Finish is the write-path entry point, invoked once per read-eligible
// request after a response is available. It decides cacheability,
// selects the write key's session mode, and issues a non-blocking
// store write. The response and key are fully serialized before the
// write is scheduled, so later mutation of resp cannot corrupt it.
func (e *Engine) Finish(ctx context.Context, st *RequestState, req *Request, resp *Response, policy *CachePolicy) error {
	if !st.Resolved() {
		e.logger.Error(ctx, "write path invoked without resolved request state")
		return ErrStateNotResolved
	}

	if e.hooks.ShouldWrite != nil {
		var write bool
		err := withTimeout(ctx, e.hookTimeout, func(ctx context.Context) error {
			var herr error
			write, herr = e.hooks.ShouldWrite(ctx, req)
			return herr
		})
		if err != nil {
			return fmt.Errorf("respcache: should-write hook: %w", err)
		}
		if !write {
			e.metrics.RecordWriteSkip(ctx, "should_write_false")
			return nil
		}
	}

	switch {
	case resp.HasErrors():
		e.metrics.RecordWriteSkip(ctx, "response_errors")
		return nil
	case !resp.hasData():
		e.metrics.RecordWriteSkip(ctx, "empty_data")
		return nil
	case policy == nil:
		e.metrics.RecordWriteSkip(ctx, "no_policy")
		return nil
	case policy.MaxAge <= 0:
		e.metrics.RecordWriteSkip(ctx, "zero_max_age")
		return nil
	}

	ck, ok := e.writeKey(ctx, st, policy)
	if !ok {
		return nil
	}

	storeKey, err := e.serializer.StoreKey(key.CacheKey{Base: st.baseKey, Contextual: ck})
	if err != nil {
		return fmt.Errorf("respcache: serialize write key: %w", err)
	}

	// Snapshot the payload now: the write runs after Finish returns,
	// and the caller is free to mutate resp once it has its response.
	payload, err := json.Marshal(cachedPayload{Data: resp.Data})
	if err != nil {
		return fmt.Errorf("respcache: serialize payload: %w", err)
	}

	e.scheduleWrite(ctx, ck.Mode, storeKey, payload, policy.MaxAge)
	return nil
}

// writeKey selects the session mode for the write key, or reports that
// the write must be skipped.
func (e *Engine) writeKey(ctx context.Context, st *RequestState, policy *CachePolicy) (key.ContextualKey, bool) {
	sid, hasSession := st.SessionID()

	if policy.Scope == ScopePrivate {
		if e.hooks.SessionID == nil {
			// Private data was produced but nothing can scope it to a
			// caller. Caching it anywhere would leak it.
			e.logger.Warn(ctx, "private response with no session hook configured, write skipped")
			e.metrics.RecordWriteSkip(ctx, "no_session_hook")
			return key.ContextualKey{}, false
		}
		if !hasSession {
			e.metrics.RecordWriteSkip(ctx, "anonymous_private")
			return key.ContextualKey{}, false
		}
		return key.ContextualKey{Mode: key.ModePrivate, SessionID: sid}, true
	}

	// Public results still partition on authentication: an
	// authenticated-context public result may differ from a fully
	// anonymous one.
	if hasSession {
		return key.ContextualKey{Mode: key.ModeAuthenticated}, true
	}
	return key.ContextualKey{Mode: key.ModeNone}, true
}

// scheduleWrite hands a fully materialized entry to the background
// writer. The request context's cancellation must not abort a write
// that outlives the response, so the write runs under a detached
// context that keeps the request's values.
func (e *Engine) scheduleWrite(ctx context.Context, mode key.SessionMode, storeKey string, payload []byte, ttl time.Duration) {
	bgCtx := context.WithoutCancel(ctx)
	start := time.Now()

	submitted := e.writer.Submit(
		func() error {
			return withTimeout(bgCtx, e.writeTimeout, func(ctx context.Context) error {
				return e.store.Set(ctx, storeKey, payload, ttl)
			})
		},
		func(err error) {
			e.metrics.RecordWrite(bgCtx, mode.String(), time.Since(start), err)
			if err != nil {
				e.logger.Warn(bgCtx, "background cache write failed",
					observe.Field{Key: "mode", Value: mode.String()},
					observe.Field{Key: "error", Value: err.Error()},
				)
			}
		},
	)

	if !submitted {
		e.metrics.RecordWriteSkip(ctx, "writer_full")
		e.logger.Warn(ctx, "background writer at capacity, write dropped",
			observe.Field{Key: "mode", Value: mode.String()},
		)
	}
}
