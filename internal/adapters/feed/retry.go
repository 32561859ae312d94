package feed

import (
	"context"
	"errors"
	"time"
)

// retry runs fn up to attempts times with exponential backoff capped at
// maxDelay. Errors for which permanent reports true stop immediately.
func retry(ctx context.Context, attempts int, initial, maxDelay time.Duration, permanent func(error) bool, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	d := initial
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			t := time.NewTimer(d)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return errors.Join(err, ctx.Err())
			}
			if d < maxDelay {
				d *= 2
				if d > maxDelay {
					d = maxDelay
				}
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if permanent != nil && permanent(err) {
			return err
		}
	}
	return err
}
