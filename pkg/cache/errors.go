package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrBackend marks failures to reach a remote backend: refused
	// connections, timeouts, server errors.
	ErrBackend = errors.New("cache backend unavailable")

	// ErrClosed is returned by every operation on a closed cache.
	ErrClosed = errors.New("cache closed")
)

// RetryableError marks a failure that may succeed when tried again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable marks err as worth retrying. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err or anything it wraps was marked with
// [Retryable].
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

const retryAttempts = 3

// retryDelay is the first backoff pause; each further pause doubles it.
var retryDelay = 100 * time.Millisecond

// RetryWithBackoff calls fn until it succeeds, fails with an error not marked
// [Retryable], or has been tried three times. Cancelling ctx during a pause
// returns ctx.Err().
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	err := fn()
	for attempt, pause := 1, retryDelay; attempt < retryAttempts && IsRetryable(err); attempt, pause = attempt+1, pause*2 {
		t := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		err = fn()
	}
	return err
}
