package queue

import "time"

// RetryPolicy is a declarative backoff schedule consumed by the queue.
// Attempt N (1-based) that fails is retried after
// BaseDelay * Multiplier^(N-1), until MaxAttempts is exhausted.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy gives each job 3 delivery attempts with 1s, 2s delays
// between them.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
	Multiplier:  2,
}

// Delay returns how long to wait before the attempt following a failed
// attempt number (1-based). Attempts beyond MaxAttempts get no delay; the
// caller must not retry them.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
	}
	return d
}

// Exhausted reports whether a job that has used the given number of attempts
// is out of retries.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}

// Retention windows for finished jobs. Failed jobs are kept longer for
// inspection.
const (
	CompletedRetention = 24 * time.Hour
	FailedRetention    = 7 * 24 * time.Hour
)
