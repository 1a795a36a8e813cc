// Package retry provides the single bounded-backoff policy every network
// call in the promotion path goes through. Retries are local to one
// operation; callers never retry a whole promotion step.
package retry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
)

// Policy is a reusable bounded exponential backoff. The zero value is not
// usable; construct with NewPolicy.
type Policy struct {
	MaxAttempts uint64
	BaseDelay   time.Duration
}

// NewPolicy returns the default promotion retry policy: 3 attempts,
// exponential backoff from a small base delay.
func NewPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

// Do runs op, retrying transient failures until the attempt budget is
// spent. Errors wrapped with Permanent stop immediately. Context
// cancellation stops between attempts.
func (p Policy) Do(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.BaseDelay

	bounded := backoff.WithContext(backoff.WithMaxRetries(policy, p.MaxAttempts-1), ctx)

	return backoff.Retry(op, bounded)
}

// Permanent marks an error as not retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return backoff.Permanent(err)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var permanent *backoff.PermanentError

	return errors.As(err, &permanent)
}

// RetryableStatus reports whether an HTTP status from a provider is worth
// retrying: timeouts, throttling and server errors are; other 4xx are not.
func RetryableStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout:
		return true
	case status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}
