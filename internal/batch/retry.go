package batch

import (
	"fmt"
	"time"
)

// RetryPolicy decides how many times a failed item is retried and how long to
// wait before each retry. Backoff plateaus: attempts beyond the end of the
// list reuse its last entry.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `validate:"gte=0"`

	// Backoff holds one delay per retry attempt.
	Backoff []time.Duration `validate:"dive,gte=0"`
}

// DefaultRetryPolicy returns two retries waiting 1s then 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		Backoff:    []time.Duration{time.Second, 2 * time.Second},
	}
}

// Attempts returns the total number of attempts allowed.
func (p RetryPolicy) Attempts() int {
	return p.MaxRetries + 1
}

// Delay returns the wait between attempt and attempt+1.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	return p.Backoff[min(attempt, len(p.Backoff)-1)]
}

// ShouldRetry reports whether another attempt may follow attempt.
func (p RetryPolicy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxRetries
}

// Validate rejects negative retry counts and delays.
func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries cannot be negative", ErrInvalidConfig)
	}
	for i, d := range p.Backoff {
		if d < 0 {
			return fmt.Errorf("%w: backoff[%d] cannot be negative", ErrInvalidConfig, i)
		}
	}
	return nil
}
