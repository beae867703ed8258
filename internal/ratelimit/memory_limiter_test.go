package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_SlidingWindow(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()
	limiter := NewMemoryLimiter(testLogger(), WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		result, err := limiter.Check(ctx, "user:1", 10, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		clock.Advance(time.Second)
	}

	result, err := limiter.Check(ctx, "user:1", 10, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	require.NotNil(t, result)
	assert.False(t, result.Allowed)
	assert.Equal(t, start.Add(time.Minute), result.ResetAt)

	// still inside the window of the first request
	clock.now = start.Add(time.Minute)
	result, _ = limiter.Check(ctx, "user:1", 10, time.Minute)
	assert.False(t, result.Allowed)

	clock.now = start.Add(time.Minute + time.Nanosecond)
	result, err = limiter.Check(ctx, "user:1", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	// only the oldest slot freed up
	result, _ = limiter.Check(ctx, "user:1", 10, time.Minute)
	assert.False(t, result.Allowed)
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter(testLogger())
	ctx := context.Background()

	_, err := limiter.Check(ctx, "user:1", 1, time.Minute)
	require.NoError(t, err)

	result, err := limiter.Check(ctx, "user:2", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestMemoryLimiter_Cleanup(t *testing.T) {
	clock := newFakeClock()
	limiter := NewMemoryLimiter(testLogger(), WithClock(clock.Now))
	ctx := context.Background()

	_, _ = limiter.Check(ctx, "user:1", 10, time.Minute)
	clock.Advance(10 * time.Minute)
	_, _ = limiter.Check(ctx, "user:2", 10, time.Minute)

	assert.Equal(t, 1, limiter.Cleanup(5*time.Minute))
	assert.Len(t, limiter.buckets, 1)
	assert.Contains(t, limiter.buckets, "user:2")
}
