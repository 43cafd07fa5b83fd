package session

import (
	"context"
	"testing"

	"github.com/jonwraymond/respcache/respcache"
)

func TestSessionIDFromContext(t *testing.T) {
	ctx := context.Background()

	if got := SessionIDFromContext(ctx); got != "" {
		t.Errorf("SessionIDFromContext(empty) = %q, want empty", got)
	}

	ctx = WithSessionID(ctx, "alice")
	if got := SessionIDFromContext(ctx); got != "alice" {
		t.Errorf("SessionIDFromContext() = %q, want alice", got)
	}
}

func TestFromContext(t *testing.T) {
	hook := FromContext()
	req := &respcache.Request{Document: "query Q { me }"}

	sid, err := hook(context.Background(), req)
	if err != nil {
		t.Fatalf("hook error = %v", err)
	}
	if sid != "" {
		t.Errorf("sid = %q, want anonymous", sid)
	}

	sid, err = hook(WithSessionID(context.Background(), "bob"), req)
	if err != nil {
		t.Fatalf("hook error = %v", err)
	}
	if sid != "bob" {
		t.Errorf("sid = %q, want bob", sid)
	}
}
