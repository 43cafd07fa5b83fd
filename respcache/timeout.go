package respcache

import (
	"context"
	"errors"
	"time"
)

// withTimeout runs op under a deadline without trusting op to honor
// its context: a hook or store adapter that ignores cancellation still
// cannot stall the request path past the configured timeout.
// A non-positive timeout runs op directly.
func withTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	if timeout <= 0 {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}
