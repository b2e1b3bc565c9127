package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/novasocial/nova-consistency/internal/logger"
	"github.com/novasocial/nova-consistency/internal/repository"
)

// Sweeper periodically deletes published outbox rows and expired idempotency
// markers. Both windows must exceed the broker's maximum redelivery lag:
// deleting a marker too early turns a redelivery into a second execution.
type Sweeper struct {
	Outbox    repository.OutboxRepository
	Processed repository.ProcessedEventsRepository

	Interval           time.Duration
	OutboxRetention    time.Duration
	ProcessedRetention time.Duration
}

// Run sweeps once at startup and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.Interval <= 0 {
		s.Interval = time.Hour
	}
	if s.OutboxRetention <= 0 {
		s.OutboxRetention = 7 * 24 * time.Hour
	}
	if s.ProcessedRetention <= 0 {
		s.ProcessedRetention = 7 * 24 * time.Hour
	}

	logger.L().Info("sweeper started",
		zap.Duration("interval", s.Interval),
		zap.Duration("outbox_retention", s.OutboxRetention),
		zap.Duration("processed_retention", s.ProcessedRetention),
	)

	tick := time.NewTicker(s.Interval)
	defer tick.Stop()

	for {
		s.sweep(ctx)

		select {
		case <-ctx.Done():
			logger.L().Info("sweeper stopped")
			return nil
		case <-tick.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	log := logger.L()
	now := time.Now()

	if n, err := s.Outbox.SweepPublished(ctx, now.Add(-s.OutboxRetention)); err != nil {
		if ctx.Err() == nil {
			log.Error("outbox sweep failed", zap.Error(err))
		}
	} else if n > 0 {
		log.Info("outbox rows swept", zap.Int64("deleted", n))
	}

	if n, err := s.Processed.Sweep(ctx, now.Add(-s.ProcessedRetention)); err != nil {
		if ctx.Err() == nil {
			log.Error("processed sweep failed", zap.Error(err))
		}
	} else if n > 0 {
		log.Info("idempotency markers swept", zap.Int64("deleted", n))
	}
}
