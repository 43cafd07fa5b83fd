package store

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestPrefixStore_Isolation(t *testing.T) {
	inner := NewMemoryStore()
	a := NewPrefixStore(inner, "tenant-a:")
	b := NewPrefixStore(inner, "tenant-b:")
	ctx := context.Background()

	if err := a.Set(ctx, "k", []byte("from-a"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Error("tenant-b should not observe tenant-a's entry")
	}

	value, ok, err := a.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || !bytes.Equal(value, []byte("from-a")) {
		t.Errorf("Get() = (%q, %v), want (%q, true)", value, ok, "from-a")
	}
}

func TestPrefixStore_NilInner(t *testing.T) {
	s := NewPrefixStore(nil, "p:")
	ctx := context.Background()

	if _, _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNilStore) {
		t.Errorf("Get() error = %v, want ErrNilStore", err)
	}
	if err := s.Set(ctx, "k", nil, time.Minute); !errors.Is(err, ErrNilStore) {
		t.Errorf("Set() error = %v, want ErrNilStore", err)
	}
}
