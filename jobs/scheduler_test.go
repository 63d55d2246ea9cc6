package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (c *countingRefresher) Refresh(ctx context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestScheduler_RunsRefresh(t *testing.T) {
	refresher := &countingRefresher{}
	s := NewScheduler(refresher, "* * * * * *", time.Second, zap.NewNop())

	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool {
		return refresher.calls.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_Disabled(t *testing.T) {
	refresher := &countingRefresher{}
	s := NewScheduler(refresher, "", 0, zap.NewNop())

	require.NoError(t, s.Start())
	s.Stop(context.Background())

	assert.Zero(t, refresher.calls.Load())
	assert.Empty(t, s.cron.Entries())
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := NewScheduler(&countingRefresher{}, "every minute", time.Second, zap.NewNop())
	assert.Error(t, s.Start())
}

func TestScheduler_RefreshErrorIsLogged(t *testing.T) {
	refresher := &countingRefresher{err: errors.New("iam unavailable")}
	s := NewScheduler(refresher, "0 0 0 1 1 *", time.Second, zap.NewNop())

	s.refreshGateway()

	assert.Equal(t, int32(1), refresher.calls.Load())
}
