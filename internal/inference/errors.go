package inference

import (
	"errors"
	"fmt"
)

// Error is a classification failure tagged with retryability. Server errors
// and timeouts are retryable; client errors (bad credentials, malformed
// request) are not. Callers use the tag for alerting, not control flow.
type Error struct {
	Op        string
	Status    int // HTTP status, 0 for transport failures
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("inference %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("inference %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether err is an inference error worth retrying.
func IsRetryable(err error) bool {
	var infErr *Error
	if errors.As(err, &infErr) {
		return infErr.Retryable
	}
	return false
}

var (
	ErrServiceUnavailable = errors.New("sentiment service unavailable")
	ErrInferenceTimeout   = errors.New("sentiment inference timeout")
	ErrInvalidResponse    = errors.New("sentiment service returned invalid response")
	ErrRequestRejected    = errors.New("sentiment service rejected request")
)
