package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLimiter_Check(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(Config{Requests: 3, Window: 3 * time.Second})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Check(ctx, "auth", "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, 3, res.Limit)
	}

	res, err := l.Check(ctx, "auth", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.True(t, res.ResetAt.After(now))

	t.Run("clients and scopes are independent", func(t *testing.T) {
		res, _ := l.Check(ctx, "auth", "10.0.0.2")
		assert.True(t, res.Allowed)
		res, _ = l.Check(ctx, "llm", "10.0.0.1")
		assert.True(t, res.Allowed)
	})

	t.Run("bucket refills", func(t *testing.T) {
		now = now.Add(time.Second)
		res, _ := l.Check(ctx, "auth", "10.0.0.1")
		assert.True(t, res.Allowed)
	})
}

func TestLocalLimiter_Disabled(t *testing.T) {
	l := NewLocalLimiter(Config{Requests: 0})
	res, err := l.Check(context.Background(), "auth", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Zero(t, res.Limit)
}

func TestLocalLimiter_SweepsIdleEntries(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(Config{Requests: 5, Window: time.Minute})
	l.now = func() time.Time { return now }

	_, _ = l.Check(context.Background(), "auth", "10.0.0.1")
	require.Len(t, l.entries, 1)

	now = now.Add(localIdleTTL + localSweepInterval + time.Second)
	_, _ = l.Check(context.Background(), "auth", "10.0.0.9")

	assert.Len(t, l.entries, 1)
	assert.Contains(t, l.entries, "auth:10.0.0.9")
}
