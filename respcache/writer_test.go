package respcache

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func fastWriterConfig() WriterConfig {
	return WriterConfig{
		MaxConcurrent: 4,
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
	}
}

func TestWriter_RetriesUntilSuccess(t *testing.T) {
	w := NewWriter(fastWriterConfig())

	var attempts atomic.Int32
	var finalErr atomic.Value

	ok := w.Submit(
		func() error {
			if attempts.Add(1) < 3 {
				return errors.New("transient")
			}
			return nil
		},
		func(err error) {
			if err == nil {
				err = errNone
			}
			finalErr.Store(err)
		},
	)
	if !ok {
		t.Fatal("Submit() = false, want accepted")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	if got := finalErr.Load(); got != errNone {
		t.Errorf("final error = %v, want success", got)
	}
}

// errNone is a sentinel so atomic.Value can distinguish "done with nil
// error" from "callback never ran".
var errNone = errors.New("none")

func TestWriter_ReportsFinalError(t *testing.T) {
	w := NewWriter(fastWriterConfig())

	opErr := errors.New("store down")
	var attempts atomic.Int32
	var finalErr atomic.Value

	ok := w.Submit(
		func() error {
			attempts.Add(1)
			return opErr
		},
		func(err error) {
			finalErr.Store(err)
		},
	)
	if !ok {
		t.Fatal("Submit() = false, want accepted")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want MaxAttempts", got)
	}
	if got, _ := finalErr.Load().(error); !errors.Is(got, opErr) {
		t.Errorf("final error = %v, want op error", got)
	}
}

func TestWriter_SubmitAfterClose(t *testing.T) {
	w := NewWriter(fastWriterConfig())
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if w.Submit(func() error { return nil }, nil) {
		t.Error("Submit() after Close = true, want rejected")
	}
}

func TestWriter_DropsAtCapacity(t *testing.T) {
	cfg := fastWriterConfig()
	cfg.MaxConcurrent = 1
	w := NewWriter(cfg)

	release := make(chan struct{})
	started := make(chan struct{})

	ok := w.Submit(func() error {
		close(started)
		<-release
		return nil
	}, nil)
	if !ok {
		t.Fatal("first Submit() = false, want accepted")
	}
	<-started

	// The slot is occupied; the second write is dropped, not queued.
	if w.Submit(func() error { return nil }, nil) {
		t.Error("Submit() at capacity = true, want dropped")
	}

	close(release)
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestWriter_CloseWaitsForInFlight(t *testing.T) {
	w := NewWriter(fastWriterConfig())

	var finished atomic.Bool
	ok := w.Submit(func() error {
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return nil
	}, nil)
	if !ok {
		t.Fatal("Submit() = false, want accepted")
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !finished.Load() {
		t.Error("Close() returned before the in-flight write finished")
	}
}

func TestDefaultWriterConfig(t *testing.T) {
	cfg := DefaultWriterConfig()
	if cfg.MaxConcurrent <= 0 || cfg.MaxAttempts <= 0 {
		t.Errorf("defaults must be positive: %+v", cfg)
	}
	if cfg.InitialDelay <= 0 || cfg.MaxDelay < cfg.InitialDelay {
		t.Errorf("delay defaults malformed: %+v", cfg)
	}
}
