package app

import (
	"context"
	"sync"
	"time"

	"cryptofolio/internal/common"
	"cryptofolio/internal/interfaces"
)

// Scheduler refreshes prices and evaluates alerts on a fixed interval in the
// background. One refresh runs at a time; a slow provider call simply delays
// the next tick.
type Scheduler struct {
	prices   interfaces.PriceService
	alerts   interfaces.AlertService
	logger   *common.Logger
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(prices interfaces.PriceService, alerts interfaces.AlertService, logger *common.Logger, interval time.Duration) *Scheduler {
	return &Scheduler{
		prices:   prices,
		alerts:   alerts,
		logger:   logger,
		interval: interval,
	}
}

// Start launches the refresh loop. Calling Start on a running scheduler is a
// no-op. The first refresh runs immediately rather than one interval in.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)
	s.logger.Info().Dur("interval", s.interval).Msg("Price refresh scheduler started")
}

// Stop halts the refresh loop and waits for an in-flight refresh to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info().Msg("Price refresh scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *Scheduler) refresh(ctx context.Context) {
	updated, err := s.prices.RefreshPrices(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("Scheduled price refresh failed")
		}
		return
	}
	if updated == 0 {
		return
	}

	triggered, err := s.alerts.Evaluate(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("Alert evaluation failed")
		}
		return
	}
	if triggered > 0 {
		s.logger.Info().Int("triggered", triggered).Msg("Alerts triggered on refresh")
	}
}
