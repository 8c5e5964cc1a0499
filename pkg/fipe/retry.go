package fipe

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// BackoffStrategy selects how the delay grows between rate-limited attempts
type BackoffStrategy string

const (
	BackoffFixed       BackoffStrategy = "fixed"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
	BackoffFibonacci   BackoffStrategy = "fibonacci"
)

// ParseBackoffStrategy resolves a strategy name; empty means fixed
func ParseBackoffStrategy(s string) (BackoffStrategy, error) {
	switch BackoffStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", BackoffFixed:
		return BackoffFixed, nil
	case BackoffLinear:
		return BackoffLinear, nil
	case BackoffExponential:
		return BackoffExponential, nil
	case BackoffFibonacci:
		return BackoffFibonacci, nil
	default:
		return "", fmt.Errorf("unknown backoff strategy %q", s)
	}
}

// RetryPolicy bounds retries of transient failures. A request is attempted at
// most MaxRetries+1 times whatever the strategy.
type RetryPolicy struct {
	MaxRetries int
	Strategy   BackoffStrategy
	// Backoff is the fixed delay, or the first delay for growing strategies
	Backoff    time.Duration
	MaxBackoff time.Duration
	// Jitter spreads each delay uniformly over [delay/2, delay]
	Jitter bool
}

// DefaultRetryPolicy waits a fixed 30s up to three times
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Strategy:   BackoffFixed,
		Backoff:    30 * time.Second,
		MaxBackoff: 5 * time.Minute,
	}
}

// Delay returns the wait before retry number attempt (1-based)
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var d time.Duration
	switch p.Strategy {
	case BackoffLinear:
		d = scaleBackoff(p.Backoff, int64(attempt))
	case BackoffExponential:
		d = scaleBackoff(p.Backoff, exponentialFactor(attempt))
	case BackoffFibonacci:
		d = scaleBackoff(p.Backoff, fibonacciFactor(attempt))
	default:
		d = p.Backoff
	}

	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}

	if p.Jitter && d > 1 {
		half := d / 2
		d = half + rand.N(d-half+1)
	}

	return d
}

// scaleBackoff multiplies base by factor, saturating at the largest
// representable duration instead of wrapping negative.
func scaleBackoff(base time.Duration, factor int64) time.Duration {
	if base <= 0 || factor <= 0 {
		return base
	}
	if int64(base) > math.MaxInt64/factor {
		return time.Duration(math.MaxInt64)
	}
	return base * time.Duration(factor)
}

// 1, 1, 2, 3, 5, 8... saturating at math.MaxInt64
func fibonacciFactor(attempt int) int64 {
	if attempt <= 2 {
		return 1
	}
	a, b := int64(1), int64(1)
	for i := 2; i < attempt; i++ {
		if b > math.MaxInt64-a {
			return math.MaxInt64
		}
		a, b = b, a+b
	}
	return b
}

// 1, 2, 4, 8...
func exponentialFactor(attempt int) int64 {
	if attempt > 32 {
		attempt = 32
	}
	return int64(1) << (attempt - 1)
}

// Sleeper blocks for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
