package respcache

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// WriterConfig configures the background writer.
type WriterConfig struct {
	// MaxConcurrent bounds how many store writes run at once.
	// Default: 16
	MaxConcurrent int

	// MaxAttempts is the number of attempts per write (including the
	// first). Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 50ms
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries. Default: 1s
	MaxDelay time.Duration
}

// DefaultWriterConfig returns a WriterConfig with sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		MaxConcurrent: 16,
		MaxAttempts:   3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
	}
}

// Writer runs store writes off the request path. Submissions never
// block: a writer at capacity drops the write and tells the caller,
// because delaying a response to cache it would invert the engine's
// latency contract. Write failures are retried with backoff and the
// final outcome is reported to the per-job callback, never to the
// requester.
type Writer struct {
	cfg    WriterConfig
	group  *errgroup.Group
	mu     sync.Mutex
	closed bool
}

// NewWriter creates a background writer.
func NewWriter(cfg WriterConfig) *Writer {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 16
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 50 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = time.Second
	}

	group := &errgroup.Group{}
	group.SetLimit(cfg.MaxConcurrent)

	return &Writer{cfg: cfg, group: group}
}

// Submit schedules op for background execution. Returns false when the
// writer is closed or at capacity; the caller decides how to report the
// dropped write. done receives the final error after retries, or nil.
func (w *Writer) Submit(op func() error, done func(err error)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return false
	}

	return w.group.TryGo(func() error {
		err := w.retry(op)
		if done != nil {
			done(err)
		}
		return nil
	})
}

// retry runs op up to MaxAttempts times with exponential backoff.
func (w *Writer) retry(op func() error) error {
	var lastErr error
	delay := w.cfg.InitialDelay

	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if attempt >= w.cfg.MaxAttempts {
			break
		}

		time.Sleep(delay)
		delay *= 2
		if delay > w.cfg.MaxDelay {
			delay = w.cfg.MaxDelay
		}
	}

	return lastErr
}

// Close stops accepting writes and waits for in-flight ones to finish.
func (w *Writer) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	return w.group.Wait()
}
