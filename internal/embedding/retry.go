package embedding

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxRetries = 4
	baseRetryDelay    = 200 * time.Millisecond
	maxRetryDelay     = 5 * time.Second
)

// errRetryable marks failures worth another attempt (429, 5xx, transport).
type errRetryable struct {
	err        error
	retryAfter time.Duration
}

func (e errRetryable) Error() string { return e.err.Error() }
func (e errRetryable) Unwrap() error { return e.err }

// withRetry runs fn until it succeeds, returns a non-retryable error, or
// attempts run out. Sleeps honour ctx and any Retry-After hint.
func withRetry(ctx context.Context, maxRetries int, fn func() ([]float32, error)) ([]float32, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		vec, err := fn()
		if err == nil {
			return vec, nil
		}
		lastErr = err
		var retry errRetryable
		if !errors.As(err, &retry) || attempt == maxRetries {
			return nil, err
		}
		delay := retry.retryAfter
		if delay <= 0 {
			delay = retryDelay(attempt)
		}
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := baseRetryDelay << attempt
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func parseRetryAfter(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(raw); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
