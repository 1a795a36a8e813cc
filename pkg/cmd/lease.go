package cmd

import (
	"context"

	"github.com/dukex/stagehand/pkg/lease"
)

// NewLease selects the promotion lease backend. A redis URL gives the
// distributed lease; an empty URL falls back to the in-process lease,
// which is only safe for a single promoter process.
func NewLease(ctx context.Context, redisURL string) (lease.Lease, error) {
	if redisURL == "" {
		return lease.NewMemoryLease(), nil
	}

	return lease.NewRedisLease(ctx, redisURL)
}
