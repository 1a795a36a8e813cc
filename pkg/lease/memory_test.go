package lease

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLeaseSerializesPerEnvironment(t *testing.T) {
	ctx := context.Background()
	leases := NewMemoryLease()

	require.NoError(t, leases.Acquire(ctx, "production", "promo-1"))

	// A second promotion cannot take the same environment.
	err := leases.Acquire(ctx, "production", "promo-2")
	require.ErrorIs(t, err, ErrHeld)

	// A different environment is independent.
	require.NoError(t, leases.Acquire(ctx, "staging", "promo-2"))

	// Re-acquiring by the holder is idempotent.
	require.NoError(t, leases.Acquire(ctx, "production", "promo-1"))
}

func TestMemoryLeaseRelease(t *testing.T) {
	ctx := context.Background()
	leases := NewMemoryLease()

	require.NoError(t, leases.Acquire(ctx, "production", "promo-1"))

	// Releasing with the wrong holder is a no-op.
	require.NoError(t, leases.Release(ctx, "production", "promo-2"))
	assert.ErrorIs(t, leases.Acquire(ctx, "production", "promo-3"), ErrHeld)

	// Releasing with the right holder frees the environment.
	require.NoError(t, leases.Release(ctx, "production", "promo-1"))
	require.NoError(t, leases.Acquire(ctx, "production", "promo-3"))
}
