package worker

import (
	"math"
	"time"
)

const defaultMaxRetries = 5

// RetryPolicy is the backoff applied to failed spreadsheet syncs. Zero
// fields fall back to DefaultRetryPolicy values.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy: 2s, 4s, 8s... capped at 5 minutes, five attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    defaultMaxRetries,
		InitialDelay:  2 * time.Second,
		MaxDelay:      5 * time.Minute,
		BackoffFactor: 2,
	}
}

// Exhausted reports whether a task that failed attempt times goes to the dead letter.
func (r RetryPolicy) Exhausted(attempt int) bool {
	limit := r.MaxRetries
	if limit <= 0 {
		limit = defaultMaxRetries
	}
	return attempt >= limit
}

// NextDelay returns the wait before retry number attempt (1-based).
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := r.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	factor := r.BackoffFactor
	if factor < 1 {
		factor = 2
	}

	f := float64(initial) * math.Pow(factor, float64(attempt-1))
	if r.MaxDelay > 0 && f > float64(r.MaxDelay) {
		return r.MaxDelay
	}
	if f >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(f)
}
