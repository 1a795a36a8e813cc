// Package lease guarantees at most one active promotion per target
// environment. The lease is a hard guard in front of the advisory
// running-promotion check, so two concurrent callers can never both start
// mutating the same environment.
package lease

import (
	"context"
	"errors"
	"time"
)

// ErrHeld indicates another promotion currently holds the environment.
var ErrHeld = errors.New("environment lease is already held")

// DefaultTTL bounds how long a crashed promotion can block an environment.
const DefaultTTL = 30 * time.Minute

// Lease serializes promotions per environment.
type Lease interface {
	// Acquire takes the lease for an environment on behalf of a promotion.
	// Returns ErrHeld when another holder is active.
	Acquire(ctx context.Context, environmentID, promotionID string) error

	// Release frees the lease. Releasing a lease held by another promotion
	// is a no-op.
	Release(ctx context.Context, environmentID, promotionID string) error
}
