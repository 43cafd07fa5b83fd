package respcache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/respcache/key"
	"github.com/jonwraymond/respcache/store"
)

// sessionFromHeader resolves the session id from the X-Session header.
// Empty header means anonymous.
func sessionFromHeader(_ context.Context, req *Request) (string, error) {
	return req.GetHeader("X-Session"), nil
}

func testRequest(session string) *Request {
	req := &Request{
		Document:  "query Q { user { id } }",
		Operation: "Q",
		Variables: map[string]any{},
	}
	if session != "" {
		req.Header = map[string][]string{"X-Session": {session}}
	}
	return req
}

func publicPolicy() *CachePolicy {
	return &CachePolicy{Scope: ScopePublic, MaxAge: 60 * time.Second}
}

func privatePolicy() *CachePolicy {
	return &CachePolicy{Scope: ScopePrivate, MaxAge: 60 * time.Second}
}

func okResponse(data string) *Response {
	return &Response{Data: json.RawMessage(data)}
}

func newTestEngine(t *testing.T, st store.Store, opts ...Option) *Engine {
	t.Helper()
	e, err := New(st, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

// finishAndDrain runs the write path and waits for the background
// write to land so the test can observe the store.
func finishAndDrain(t *testing.T, e *Engine, st *RequestState, req *Request, resp *Response, policy *CachePolicy) {
	t.Helper()
	if err := e.Finish(context.Background(), st, req, resp, policy); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestEngine_AnonymousRoundTrip(t *testing.T) {
	mem := store.NewMemoryStore()
	hooks := Hooks{SessionID: sessionFromHeader}
	ctx := context.Background()

	writer := newTestEngine(t, mem, WithHooks(hooks))
	resp, st, err := writer.Lookup(ctx, testRequest(""))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if resp != nil {
		t.Fatal("first lookup should miss")
	}
	finishAndDrain(t, writer, st, testRequest(""), okResponse(`{"user":{"id":"1"}}`), publicPolicy())

	if mem.Len() != 1 {
		t.Fatalf("expected 1 stored entry, got %d", mem.Len())
	}

	reader := newTestEngine(t, mem, WithHooks(hooks))
	cached, _, err := reader.Lookup(ctx, testRequest(""))
	if err != nil {
		t.Fatalf("second Lookup() error = %v", err)
	}
	if cached == nil {
		t.Fatal("second lookup should hit")
	}
	if string(cached.Data) != `{"user":{"id":"1"}}` {
		t.Errorf("cached data = %s, want original payload", cached.Data)
	}
	if cached.HasErrors() {
		t.Error("cached response should never carry errors")
	}
}

func TestEngine_PrivateIsolation(t *testing.T) {
	mem := store.NewMemoryStore()
	hooks := Hooks{SessionID: sessionFromHeader}
	ctx := context.Background()

	alice := newTestEngine(t, mem, WithHooks(hooks))
	_, st, err := alice.Lookup(ctx, testRequest("alice"))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	finishAndDrain(t, alice, st, testRequest("alice"), okResponse(`{"me":"alice"}`), privatePolicy())

	// Bob must not see alice's private entry.
	bob := newTestEngine(t, mem, WithHooks(hooks))
	cached, _, err := bob.Lookup(ctx, testRequest("bob"))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if cached != nil {
		t.Errorf("bob observed alice's private payload: %s", cached.Data)
	}

	// Anonymous callers must not see it either.
	anon := newTestEngine(t, mem, WithHooks(hooks))
	cached, _, err = anon.Lookup(ctx, testRequest(""))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if cached != nil {
		t.Errorf("anonymous caller observed private payload: %s", cached.Data)
	}

	// Alice still gets her own entry back.
	alice2 := newTestEngine(t, mem, WithHooks(hooks))
	cached, _, err = alice2.Lookup(ctx, testRequest("alice"))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if cached == nil || string(cached.Data) != `{"me":"alice"}` {
		t.Errorf("alice should read her own private entry, got %v", cached)
	}
}

func TestEngine_PrivatePrecedence(t *testing.T) {
	mem := store.NewMemoryStore()
	hooks := Hooks{SessionID: sessionFromHeader}
	ctx := context.Background()

	// Seed an authenticated-public entry.
	e1 := newTestEngine(t, mem, WithHooks(hooks))
	_, st, err := e1.Lookup(ctx, testRequest("alice"))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	finishAndDrain(t, e1, st, testRequest("alice"), okResponse(`{"shared":true}`), publicPolicy())

	// Seed a private entry for the same request identity.
	e2 := newTestEngine(t, mem, WithHooks(hooks))
	_, st, err = e2.Lookup(ctx, testRequest("alice"))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	finishAndDrain(t, e2, st, testRequest("alice"), okResponse(`{"private":true}`), privatePolicy())

	// The private entry must win.
	e3 := newTestEngine(t, mem, WithHooks(hooks))
	cached, _, err := e3.Lookup(ctx, testRequest("alice"))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if cached == nil || string(cached.Data) != `{"private":true}` {
		t.Errorf("private entry should shadow authenticated one, got %v", cached)
	}
}

func TestEngine_AuthenticatedPublicShared(t *testing.T) {
	mem := store.NewMemoryStore()
	hooks := Hooks{SessionID: sessionFromHeader}
	ctx := context.Background()

	e1 := newTestEngine(t, mem, WithHooks(hooks))
	_, st, err := e1.Lookup(ctx, testRequest("alice"))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	finishAndDrain(t, e1, st, testRequest("alice"), okResponse(`{"localized":true}`), publicPolicy())

	// Another authenticated session shares the entry.
	bob := newTestEngine(t, mem, WithHooks(hooks))
	cached, _, err := bob.Lookup(ctx, testRequest("bob"))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if cached == nil || string(cached.Data) != `{"localized":true}` {
		t.Errorf("authenticated-public entry should be shared across sessions, got %v", cached)
	}

	// An anonymous caller does not.
	anon := newTestEngine(t, mem, WithHooks(hooks))
	cached, _, err = anon.Lookup(ctx, testRequest(""))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if cached != nil {
		t.Errorf("anonymous caller should not see authenticated-public entry, got %v", cached)
	}
}

func TestEngine_NoCacheGate(t *testing.T) {
	tests := []struct {
		name   string
		resp   *Response
		policy *CachePolicy
	}{
		{
			name:   "response with errors",
			resp:   &Response{Data: json.RawMessage(`{"a":1}`), Errors: []ResponseError{{Message: "boom"}}},
			policy: publicPolicy(),
		},
		{
			name:   "empty data",
			resp:   &Response{},
			policy: publicPolicy(),
		},
		{
			name:   "null data",
			resp:   okResponse(`null`),
			policy: publicPolicy(),
		},
		{
			name:   "no policy",
			resp:   okResponse(`{"a":1}`),
			policy: nil,
		},
		{
			name:   "zero max age",
			resp:   okResponse(`{"a":1}`),
			policy: &CachePolicy{Scope: ScopePublic, MaxAge: 0},
		},
		{
			name:   "negative max age",
			resp:   okResponse(`{"a":1}`),
			policy: &CachePolicy{Scope: ScopePublic, MaxAge: -time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemoryStore()
			e := newTestEngine(t, mem, WithHooks(Hooks{SessionID: sessionFromHeader}))
			ctx := context.Background()

			_, st, err := e.Lookup(ctx, testRequest(""))
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			finishAndDrain(t, e, st, testRequest(""), tt.resp, tt.policy)

			if mem.Len() != 0 {
				t.Errorf("no entry should be written, store has %d", mem.Len())
			}
		})
	}
}

func TestEngine_AnonymousPrivateSkip(t *testing.T) {
	mem := store.NewMemoryStore()
	e := newTestEngine(t, mem, WithHooks(Hooks{SessionID: sessionFromHeader}))
	ctx := context.Background()

	_, st, err := e.Lookup(ctx, testRequest(""))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	// Private-scoped result from an anonymous caller: skip, no error.
	finishAndDrain(t, e, st, testRequest(""), okResponse(`{"secret":1}`), privatePolicy())

	if mem.Len() != 0 {
		t.Errorf("private data must never be cached under an anonymous identity, store has %d", mem.Len())
	}
}

func TestEngine_PrivateWithoutSessionHook(t *testing.T) {
	mem := store.NewMemoryStore()
	// No SessionID hook configured at all.
	e := newTestEngine(t, mem)
	ctx := context.Background()

	_, st, err := e.Lookup(ctx, testRequest(""))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	finishAndDrain(t, e, st, testRequest(""), okResponse(`{"secret":1}`), privatePolicy())

	if mem.Len() != 0 {
		t.Errorf("misconfigured private write should be skipped, store has %d", mem.Len())
	}
}

func TestEngine_FinishBeforeLookup(t *testing.T) {
	e := newTestEngine(t, store.NewMemoryStore())
	ctx := context.Background()

	err := e.Finish(ctx, nil, testRequest(""), okResponse(`{"a":1}`), publicPolicy())
	if !errors.Is(err, ErrStateNotResolved) {
		t.Errorf("Finish() with nil state = %v, want ErrStateNotResolved", err)
	}

	err = e.Finish(ctx, &RequestState{}, testRequest(""), okResponse(`{"a":1}`), publicPolicy())
	if !errors.Is(err, ErrStateNotResolved) {
		t.Errorf("Finish() with unresolved state = %v, want ErrStateNotResolved", err)
	}
}

func TestEngine_SessionHookFailureFailsClosed(t *testing.T) {
	hookErr := errors.New("credential rejected")
	e := newTestEngine(t, store.NewMemoryStore(), WithHooks(Hooks{
		SessionID: func(context.Context, *Request) (string, error) {
			return "", hookErr
		},
	}))

	_, st, err := e.Lookup(context.Background(), testRequest("alice"))
	if !errors.Is(err, hookErr) {
		t.Errorf("Lookup() error = %v, want hook error propagated", err)
	}
	if st != nil {
		t.Error("no state should be returned when the session hook fails")
	}
}

func TestEngine_PredicateHookFailureFailsClosed(t *testing.T) {
	hookErr := errors.New("predicate exploded")

	e := newTestEngine(t, store.NewMemoryStore(), WithHooks(Hooks{
		ShouldRead: func(context.Context, *Request) (bool, error) {
			return false, hookErr
		},
	}))
	if _, _, err := e.Lookup(context.Background(), testRequest("")); !errors.Is(err, hookErr) {
		t.Errorf("Lookup() error = %v, want should-read error propagated", err)
	}

	e2 := newTestEngine(t, store.NewMemoryStore(), WithHooks(Hooks{
		ShouldWrite: func(context.Context, *Request) (bool, error) {
			return false, hookErr
		},
	}))
	_, st, err := e2.Lookup(context.Background(), testRequest(""))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if err := e2.Finish(context.Background(), st, testRequest(""), okResponse(`{"a":1}`), publicPolicy()); !errors.Is(err, hookErr) {
		t.Errorf("Finish() error = %v, want should-write error propagated", err)
	}
}

func TestEngine_ShouldReadFalseStillResolvesState(t *testing.T) {
	mem := store.NewMemoryStore()
	reads := 0
	countingStore := &countingReadStore{inner: mem, reads: &reads}

	e := newTestEngine(t, countingStore, WithHooks(Hooks{
		SessionID: sessionFromHeader,
		ShouldRead: func(context.Context, *Request) (bool, error) {
			return false, nil
		},
	}))
	ctx := context.Background()

	resp, st, err := e.Lookup(ctx, testRequest("alice"))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if resp != nil {
		t.Error("lookup should return no cached result when reads are declined")
	}
	if reads != 0 {
		t.Errorf("store should not be touched, saw %d reads", reads)
	}
	if !st.Resolved() {
		t.Fatal("state must be resolved even when reads are declined")
	}
	if sid, ok := st.SessionID(); !ok || sid != "alice" {
		t.Errorf("SessionID() = (%q, %v), want (alice, true)", sid, ok)
	}

	// The write path still works from the resolved state.
	finishAndDrain(t, e, st, testRequest("alice"), okResponse(`{"a":1}`), privatePolicy())
	if mem.Len() != 1 {
		t.Errorf("write should still occur, store has %d", mem.Len())
	}
}

type countingReadStore struct {
	inner store.Store
	reads *int
}

func (s *countingReadStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	*s.reads++
	return s.inner.Get(ctx, key)
}

func (s *countingReadStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.inner.Set(ctx, key, value, ttl)
}

type brokenStore struct{ err error }

func (s *brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, s.err
}

func (s *brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return s.err
}

func TestEngine_StoreReadErrorPropagates(t *testing.T) {
	storeErr := errors.New("store unreachable")
	e := newTestEngine(t, &brokenStore{err: storeErr})

	_, _, err := e.Lookup(context.Background(), testRequest(""))
	if !errors.Is(err, storeErr) {
		t.Errorf("Lookup() error = %v, want store error propagated", err)
	}
}

func TestEngine_StoreReadErrorFailOpen(t *testing.T) {
	storeErr := errors.New("store unreachable")
	e := newTestEngine(t, &brokenStore{err: storeErr}, WithFailOpenReads())

	resp, st, err := e.Lookup(context.Background(), testRequest(""))
	if err != nil {
		t.Errorf("Lookup() error = %v, want miss under fail-open", err)
	}
	if resp != nil {
		t.Error("fail-open read should report a miss")
	}
	if !st.Resolved() {
		t.Error("state must still be resolved under fail-open")
	}
}

func TestEngine_StoreWriteErrorNotSurfaced(t *testing.T) {
	storeErr := errors.New("store write refused")
	rw := &readOKWriteFailStore{err: storeErr}
	e := newTestEngine(t, rw)
	ctx := context.Background()

	_, st, err := e.Lookup(ctx, testRequest(""))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	// The write fails in the background; Finish and Close stay clean.
	finishAndDrain(t, e, st, testRequest(""), okResponse(`{"a":1}`), publicPolicy())
}

type readOKWriteFailStore struct{ err error }

func (s *readOKWriteFailStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (s *readOKWriteFailStore) Set(context.Context, string, []byte, time.Duration) error {
	return s.err
}

func TestEngine_ExtraKeyDataPartitions(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := context.Background()

	hooksFor := func(locale string) Hooks {
		return Hooks{
			ExtraKeyData: func(context.Context, *Request) (any, error) {
				return map[string]any{"locale": locale}, nil
			},
		}
	}

	en := newTestEngine(t, mem, WithHooks(hooksFor("en")))
	_, st, err := en.Lookup(ctx, testRequest(""))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	finishAndDrain(t, en, st, testRequest(""), okResponse(`{"greeting":"hello"}`), publicPolicy())

	fr := newTestEngine(t, mem, WithHooks(hooksFor("fr")))
	cached, _, err := fr.Lookup(ctx, testRequest(""))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if cached != nil {
		t.Errorf("different extra key data should partition entries, got %s", cached.Data)
	}
}

func TestEngine_OnlyDataPersisted(t *testing.T) {
	mem := store.NewMemoryStore()
	e := newTestEngine(t, mem)
	ctx := context.Background()

	_, st, err := e.Lookup(ctx, testRequest(""))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	resp := &Response{
		Data:       json.RawMessage(`{"a":1}`),
		Extensions: map[string]any{"tracing": "do-not-store"},
	}
	finishAndDrain(t, e, st, testRequest(""), resp, publicPolicy())

	// Read the stored bytes straight out of the store.
	storeKey, err := key.NewDefaultSerializer().StoreKey(key.CacheKey{
		Base: st.BaseKey(),
	})
	if err != nil {
		t.Fatalf("StoreKey() error = %v", err)
	}
	raw, ok, err := mem.Get(ctx, storeKey)
	if err != nil || !ok {
		t.Fatalf("stored entry not found: ok=%v err=%v", ok, err)
	}
	if string(raw) != `{"data":{"a":1}}` {
		t.Errorf("stored payload = %s, want data envelope only", raw)
	}
	if strings.Contains(string(raw), "do-not-store") {
		t.Error("extensions must never be persisted")
	}
}

func TestEngine_CorruptEntryIgnored(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := context.Background()

	// Plant garbage under the exact key the engine will read.
	st := &RequestState{
		baseKey: key.BaseKey{
			Document:  "query Q { user { id } }",
			Operation: "Q",
			Variables: map[string]any{},
		},
		resolved: true,
	}
	storeKey, err := key.NewDefaultSerializer().StoreKey(key.CacheKey{Base: st.BaseKey()})
	if err != nil {
		t.Fatalf("StoreKey() error = %v", err)
	}
	if err := mem.Set(ctx, storeKey, []byte("not json"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	e := newTestEngine(t, mem)
	resp, _, err := e.Lookup(ctx, testRequest(""))
	if err != nil {
		t.Errorf("Lookup() error = %v, corrupt entries should not fail the request", err)
	}
	if resp != nil {
		t.Errorf("corrupt entry should read as a miss, got %v", resp)
	}
}

func TestEngine_HookTimeout(t *testing.T) {
	e := newTestEngine(t, store.NewMemoryStore(),
		WithHookTimeout(10*time.Millisecond),
		WithHooks(Hooks{
			SessionID: func(ctx context.Context, _ *Request) (string, error) {
				select {
				case <-time.After(time.Second):
					return "late", nil
				case <-ctx.Done():
					return "", ctx.Err()
				}
			},
		}),
	)

	_, _, err := e.Lookup(context.Background(), testRequest("alice"))
	if err == nil {
		t.Fatal("Lookup() should fail when the session hook stalls")
	}
	if !errors.Is(err, ErrTimeout) && !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Lookup() error = %v, want timeout", err)
	}
}

func TestNew_NilStore(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, store.ErrNilStore) {
		t.Errorf("New(nil) error = %v, want ErrNilStore", err)
	}
}

func TestEngine_NilRequest(t *testing.T) {
	e := newTestEngine(t, store.NewMemoryStore())
	if _, _, err := e.Lookup(context.Background(), nil); !errors.Is(err, ErrNilRequest) {
		t.Errorf("Lookup(nil) error = %v, want ErrNilRequest", err)
	}
}
