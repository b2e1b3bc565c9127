package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/novasocial/nova-consistency/internal/logger"
	"github.com/novasocial/nova-consistency/internal/metrics"
	"github.com/novasocial/nova-consistency/internal/model"
	"github.com/novasocial/nova-consistency/internal/repository"
)

// Publisher delivers one outbox event to the broker and returns after ack.
type Publisher interface {
	Publish(ctx context.Context, ev model.OutboxEvent) error
}

// Relay polls the outbox for unpublished events and pushes them to Kafka.
// Many relay instances may run against the same store; SKIP LOCKED claims
// keep them off each other's rows. A crash between broker ack and commit
// re-sends the event, which consumers absorb via the idempotency guard.
type Relay struct {
	Repo      repository.OutboxRepository
	Publisher Publisher

	PollInterval   time.Duration
	BatchSize      int
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	PublishTimeout time.Duration
}

// NewRelay builds a relay with sane defaults.
func NewRelay(repo repository.OutboxRepository, pub Publisher) *Relay {
	return &Relay{
		Repo:           repo,
		Publisher:      pub,
		PollInterval:   5 * time.Second,
		BatchSize:      100,
		MaxRetries:     5,
		BackoffBase:    time.Second,
		BackoffMax:     5 * time.Minute,
		PublishTimeout: 30 * time.Second,
	}
}

// Run polls until ctx is cancelled, then drains one final cycle so in-flight
// rows are not left claimed longer than necessary.
func (r *Relay) Run(ctx context.Context) error {
	if r.PollInterval <= 0 {
		r.PollInterval = 5 * time.Second
	}
	if r.BatchSize <= 0 {
		r.BatchSize = 100
	}
	if r.MaxRetries <= 0 {
		r.MaxRetries = 5
	}

	log := logger.L()
	log.Info("relay started",
		zap.Duration("poll_interval", r.PollInterval),
		zap.Int("batch_size", r.BatchSize),
		zap.Int("max_retries", r.MaxRetries),
	)

	tick := time.NewTicker(r.PollInterval)
	defer tick.Stop()

	for {
		if n, err := r.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Error("relay cycle failed", zap.Error(err))
		} else if n > 0 {
			log.Info("relay published", zap.Int("count", n))
		}

		r.reportPending(ctx)

		select {
		case <-ctx.Done():
		case <-tick.C:
			continue
		}
		break
	}

	// final drain with a fresh deadline; ctx is already cancelled here
	drainCtx, cancel := context.WithTimeout(context.Background(), r.PublishTimeout+5*time.Second)
	defer cancel()
	if n, err := r.Cycle(drainCtx); err != nil {
		log.Warn("relay drain failed", zap.Error(err))
	} else if n > 0 {
		log.Info("relay drained", zap.Int("count", n))
	}

	log.Info("relay stopped")
	return nil
}

// Cycle claims one batch, publishes each event and marks the outcome.
// Returns the number of events acknowledged by the broker.
func (r *Relay) Cycle(ctx context.Context) (int, error) {
	claim, err := r.Repo.ClaimBatch(ctx, r.BatchSize, r.MaxRetries)
	if err != nil {
		return 0, err
	}

	log := logger.L()
	published := 0

	for _, ev := range claim.Events() {
		start := time.Now()
		pubCtx, cancel := context.WithTimeout(ctx, r.publishTimeout())
		err := r.Publisher.Publish(pubCtx, ev)
		cancel()

		if err != nil {
			attempts := ev.RetryCount + 1
			next := time.Now().Add(r.Backoff(ev.RetryCount))
			if markErr := claim.MarkFailed(ctx, ev.ID, err.Error(), next); markErr != nil {
				_ = claim.Rollback()
				return published, markErr
			}
			if attempts >= r.MaxRetries {
				metrics.OutboxRetryExhausted.Inc()
				log.Warn("event exhausted retries, needs intervention",
					zap.String("event_id", ev.ID),
					zap.String("event_type", ev.EventType),
					zap.Int("attempts", attempts),
					zap.Error(err),
				)
			} else {
				log.Warn("publish failed, will retry",
					zap.String("event_id", ev.ID),
					zap.Int("attempts", attempts),
					zap.Time("next_attempt", next),
					zap.Error(err),
				)
			}
			continue
		}

		metrics.PublishDuration.Observe(time.Since(start).Seconds())
		if markErr := claim.MarkPublished(ctx, ev.ID); markErr != nil {
			_ = claim.Rollback()
			return published, markErr
		}
		metrics.OutboxPublished.Inc()
		published++
	}

	if err := claim.Commit(); err != nil {
		return published, err
	}
	return published, nil
}

// Backoff returns the delay before a row is eligible again: base doubled per
// retry, capped at BackoffMax.
func (r *Relay) Backoff(retryCount int) time.Duration {
	base := r.BackoffBase
	if base <= 0 {
		base = time.Second
	}
	max := r.BackoffMax
	if max <= 0 {
		max = 5 * time.Minute
	}

	d := base
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

func (r *Relay) publishTimeout() time.Duration {
	if r.PublishTimeout <= 0 {
		return 30 * time.Second
	}
	return r.PublishTimeout
}

func (r *Relay) reportPending(ctx context.Context) {
	pending, age, err := r.Repo.PendingStats(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.L().Warn("pending stats failed", zap.Error(err))
		}
		return
	}
	metrics.OutboxPending.Set(float64(pending))
	metrics.OutboxOldestPendingAge.Set(age.Seconds())
}
