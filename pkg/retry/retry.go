// Package retry provides bounded exponential backoff for calls to the
// application database and the LLM providers.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Config bounds a retry loop.
type Config struct {
	MaxRetries       int
	InitialDelay     time.Duration
	MaxDelay         time.Duration
	Multiplier       float64
	JitterFactor     float64 // fraction of the delay randomized in both directions
	MaxSameErrorType int     // consecutive same-category failures before giving up early
}

// DefaultConfig suits startup dependencies and provider calls: three
// retries from 100ms, doubling, capped at 5s.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:       3,
		InitialDelay:     100 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.1,
		MaxSameErrorType: 5,
	}
}

// backoff waits out the current delay with jitter applied and returns
// the next delay, or the context error if cancelled while waiting.
func (c *Config) backoff(ctx context.Context, delay time.Duration) (time.Duration, error) {
	wait := delay
	if c.JitterFactor > 0 {
		wait += time.Duration(float64(delay) * c.JitterFactor * (rand.Float64()*2 - 1))
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return delay, ctx.Err()
	}
	next := time.Duration(float64(delay) * c.Multiplier)
	if next > c.MaxDelay {
		next = c.MaxDelay
	}
	return next, nil
}

// Do runs fn until it succeeds or the retry budget is spent, returning
// the last error. A nil cfg uses DefaultConfig.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult is Do for functions that produce a value, like pool
// construction. On failure the last result is returned alongside the
// last error.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var result T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		result, lastErr = r, err

		if attempt == cfg.MaxRetries {
			break
		}
		next, waitErr := cfg.backoff(ctx, delay)
		if waitErr != nil {
			return result, waitErr
		}
		delay = next
	}

	return result, lastErr
}

// RetryableError lets an error declare its own retryability instead of
// relying on message matching. The llm package's errors implement it.
type RetryableError interface {
	error
	IsRetryable() bool
}

// transientPatterns are message fragments from driver and provider
// errors that are worth another attempt.
var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"timeout",
	"timed out",
	"temporary failure",
	"too many connections",
	"deadlock",
	"i/o timeout",
	"network is unreachable",
	"connection timed out",
	"429",
	"500",
	"502",
	"503",
	"504",
	"rate limit",
	"service busy",
	"service unavailable",
	"too many requests",
}

// IsRetryable reports whether an error is transient. Errors carrying a
// RetryableError anywhere in their chain answer for themselves; the
// rest are matched against known transient message fragments.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var r RetryableError
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// errorCategory buckets an error so DoIfRetryable can notice when the
// same failure keeps recurring.
func errorCategory(err error) string {
	msg := strings.ToLower(err.Error())

	for _, code := range []string{"503", "502", "504", "500", "429"} {
		if strings.Contains(msg, code) {
			return code
		}
	}
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return "rate_limit"
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"):
		return "connection"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return "timeout"
	case strings.Contains(msg, "broken pipe"):
		return "broken_pipe"
	}
	return "other"
}

// DoIfRetryable retries only transient errors. Permanent failures (bad
// credentials, invalid SQL, oversized embedding input) return
// immediately, and a streak of same-category transient failures is cut
// short rather than waiting out the whole budget.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	delay := cfg.InitialDelay
	streak := 0
	category := ""

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err

		if current := errorCategory(err); current == category {
			streak++
			if cfg.MaxSameErrorType > 0 && streak >= cfg.MaxSameErrorType {
				return fmt.Errorf("giving up after %d %s errors: %w", streak, current, err)
			}
		} else {
			streak = 1
			category = current
		}

		if attempt == cfg.MaxRetries {
			break
		}
		next, waitErr := cfg.backoff(ctx, delay)
		if waitErr != nil {
			return waitErr
		}
		delay = next
	}

	return lastErr
}
