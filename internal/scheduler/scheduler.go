// Package scheduler pre-warms the basket-wide analytics caches on a cron
// schedule so dashboard requests after market close hit warm data.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"twoziq/internal/analytics"
	"twoziq/internal/config"
	"twoziq/internal/logger"
)

// Scheduler runs periodic cache pre-warm jobs.
type Scheduler struct {
	cron    *cron.Cron
	service *analytics.Service
	cfg     *config.SchedulerConfig
	log     logger.Logger
}

// New creates a scheduler for the analytics service.
func New(service *analytics.Service, cfg *config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		service: service,
		cfg:     cfg,
		log:     logger.GetGlobalLogger().WithField("component", "scheduler"),
	}
}

// Start registers the pre-warm job and starts the cron loop.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.log.Info("scheduler disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.cfg.PrewarmSpec, s.prewarm); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("scheduler started", "spec", s.cfg.PrewarmSpec)
	return nil
}

// Stop stops the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// prewarm recomputes the valuation snapshot and every P/E history period.
// Failures are logged and retried on the next tick; a cold cache only costs
// latency on the first dashboard request.
func (s *Scheduler) prewarm() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	s.service.InvalidateSnapshots(ctx)
	if _, err := s.service.Valuation(ctx); err != nil {
		s.log.Warn("valuation pre-warm failed", "error", err)
	}
	for _, period := range []string{"1y", "2y", "5y"} {
		if _, err := s.service.PEHistoryForPeriod(ctx, period); err != nil {
			s.log.Warn("P/E history pre-warm failed", "period", period, "error", err)
		}
	}
	s.log.Info("cache pre-warm completed", "elapsed", time.Since(start).String())
}
