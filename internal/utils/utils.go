package utils

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error that Retry returns immediately instead of retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls f until it succeeds or maxAttempts is reached. The delay between
// attempts starts at initialDelay and doubles after each attempt, capped at
// maxDelay when maxDelay is positive.
func Retry(ctx context.Context, maxAttempts int, initialDelay, maxDelay time.Duration, f func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var err error
	delay := initialDelay
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = f()

		// Return if successful
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == maxAttempts-1 {
			break
		}

		// Otherwise sleep and try again
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= time.Duration(2)
		if maxDelay > 0 && delay > maxDelay {
			delay = maxDelay
		}
	}
	return fmt.Errorf("exhausted retries. final error: %w", err)
}

func PointerTo[T any](v T) *T {
	return &v
}
