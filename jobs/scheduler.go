// Package jobs runs periodic background work on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher renews the text-generation credential and model catalog
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler runs the gateway refresh on a seconds-resolution cron spec
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	schedule  string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewScheduler creates a scheduler. An empty schedule disables it.
func NewScheduler(refresher Refresher, schedule string, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		refresher: refresher,
		schedule:  schedule,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start registers the refresh job and starts the cron loop
func (s *Scheduler) Start() error {
	if s.schedule == "" || s.refresher == nil {
		s.logger.Info("gateway refresh schedule disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.refreshGateway); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("refresh_schedule", s.schedule))
	return nil
}

// Stop halts the cron loop and waits for a running job up to ctx's deadline
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out waiting for running job")
	}
}

func (s *Scheduler) refreshGateway() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.refresher.Refresh(ctx); err != nil {
		s.logger.Error("gateway refresh failed", zap.Error(err))
		return
	}
	s.logger.Info("gateway refreshed", zap.Duration("duration", time.Since(start)))
}
