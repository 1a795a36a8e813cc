package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	attempts := 0

	err := testPolicy().Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoExhaustsAttemptBudget(t *testing.T) {
	attempts := 0

	err := testPolicy().Do(context.Background(), func() error {
		attempts++

		return errors.New("still failing")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	attempts := 0
	sentinel := errors.New("not found")

	err := testPolicy().Do(context.Background(), func() error {
		attempts++

		return Permanent(sentinel)
	})

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, attempts)
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0

	err := testPolicy().Do(ctx, func() error {
		attempts++
		cancel()

		return errors.New("transient")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(Permanent(errors.New("boom"))))
	assert.False(t, IsPermanent(errors.New("boom")))
	assert.NoError(t, Permanent(nil))
}

func TestRetryableStatus(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusRequestTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
		{http.StatusConflict, false},
		{http.StatusOK, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.retryable, RetryableStatus(tt.status), "status %d", tt.status)
	}
}
