package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter_BurstThenRefill(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	l := NewTokenBucketLimiter(1, 2)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "a")
	assert.False(t, ok, "burst exhausted")

	ok, _ = l.Allow(ctx, "b")
	assert.True(t, ok, "keys are independent")

	now = now.Add(time.Second)
	ok, _ = l.Allow(ctx, "a")
	assert.True(t, ok, "one token refilled")
}

func TestTokenBucketLimiter_ResetAndSweep(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	l := NewTokenBucketLimiter(0.001, 1)
	l.now = func() time.Time { return now }

	ok, _ := l.Allow(ctx, "a")
	require.True(t, ok)
	ok, _ = l.Allow(ctx, "a")
	require.False(t, ok)

	require.NoError(t, l.Reset(ctx, "a"))
	ok, _ = l.Allow(ctx, "a")
	assert.True(t, ok)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, l.Sweep())
}

func TestIdentityRateLimiter(t *testing.T) {
	ctx := context.Background()
	l := NewIdentityRateLimiter(NewTokenBucketLimiter(0.001, 1))

	ok, err := l.Allow(ctx, "ada@example.com", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Allow(ctx, "ada@example.com", "10.0.0.2")
	assert.False(t, ok, "same identity from another address")

	ok, _ = l.Allow(ctx, "", "10.0.0.1")
	assert.True(t, ok, "anonymous callers are keyed by address")
}
