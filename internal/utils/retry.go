package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alert-notification-service/internal/logging"
)

// Backoff describes a bounded exponential retry: the delay before attempt n+1 is
// BaseDelay * 2^(n-1), capped at MaxDelay when set.
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Delay returns the wait after the given failed attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.MaxDelay > 0 && d >= b.MaxDelay {
			return b.MaxDelay
		}
	}
	return d
}

// permanentError stops Retry immediately.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// sleep is swapped by tests.
var sleep = Sleep

// Retry runs fn up to b.MaxAttempts times with exponential backoff between attempts.
func Retry(ctx context.Context, logger *logging.Logger, b Backoff, operation string, fn func() error) error {
	if b.MaxAttempts < 1 {
		b.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= b.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Infof("%s succeeded on attempt %d/%d", operation, attempt, b.MaxAttempts)
			}
			return nil
		}
		lastErr = err

		var perm permanentError
		if errors.As(err, &perm) {
			logger.Warnf("%s failed permanently on attempt %d: %v", operation, attempt, perm.err)
			return perm.err
		}

		logger.Errorf("%s attempt %d/%d failed: %v", operation, attempt, b.MaxAttempts, err)
		if attempt < b.MaxAttempts {
			if err := sleep(ctx, b.Delay(attempt)); err != nil {
				return fmt.Errorf("%s interrupted after %d attempts: %w", operation, attempt, err)
			}
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operation, b.MaxAttempts, lastErr)
}
