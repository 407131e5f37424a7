package pipeline

import "time"

// RetryConfig controls per-role retry and backoff behavior.
type RetryConfig struct {
	// MaxRetries is the failed-attempt budget before dead-lettering.
	MaxRetries int
	// BackoffBase is the delay before the first retry.
	BackoffBase time.Duration
	// BackoffMultiplier grows the delay per subsequent retry.
	BackoffMultiplier float64
	// MaxBackoff caps the delay.
	MaxBackoff time.Duration
	// RoleTimeout is the sub-deadline for one role invocation. Exceeding it
	// counts as a failure for retry purposes.
	RoleTimeout time.Duration
}

// DefaultRetryConfig is the runtime default.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:        3,
	BackoffBase:       500 * time.Millisecond,
	BackoffMultiplier: 2.0,
	MaxBackoff:        30 * time.Second,
	RoleTimeout:       2 * time.Minute,
}

// Delay returns the backoff before retry attempt n (1-indexed).
func (c RetryConfig) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := c.BackoffBase
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * c.BackoffMultiplier)
		if c.MaxBackoff > 0 && d >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	if c.MaxBackoff > 0 && d > c.MaxBackoff {
		return c.MaxBackoff
	}
	return d
}
