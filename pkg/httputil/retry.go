package httputil

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MaxRetryAfter caps how long a server may ask Retry to wait.
const MaxRetryAfter = 5 * time.Second

// RetryableError marks a transient failure. After, when positive, is the
// wait the server asked for (a Retry-After header) and replaces the backoff
// delay for that attempt.
type RetryableError struct {
	Err   error
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry runs fn up to attempts times. Only [RetryableError] failures are
// retried; anything else is returned at once. The delay starts at delay and
// doubles after each attempt unless the error carries its own wait.
// Cancelling ctx ends the wait and returns ctx.Err().
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var re *RetryableError
		if !errors.As(lastErr, &re) {
			return lastErr
		}
		if i == attempts-1 {
			break
		}

		wait := delay
		if re.After > 0 {
			wait = min(re.After, MaxRetryAfter)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
	return lastErr
}

// RetryWithBackoff runs [Retry] with 3 attempts starting at 200ms. The
// detector's per-query timeout bounds the total.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, 200*time.Millisecond, fn)
}

// ParseRetryAfter reads a Retry-After header given either as seconds or as
// an HTTP date. It returns 0 when the header is absent or unusable.
func ParseRetryAfter(h string, now time.Time) time.Duration {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		return max(time.Duration(secs)*time.Second, 0)
	}
	if t, err := http.ParseTime(h); err == nil {
		return max(t.Sub(now), 0)
	}
	return 0
}
