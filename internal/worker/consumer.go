package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/novasocial/nova-consistency/internal/kafka"
	"github.com/novasocial/nova-consistency/internal/logger"
)

// Fetcher is the broker side of the consumer (satisfied by kafka.Consumer).
type Fetcher interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

// Claimer is the idempotency side of the consumer.
type Claimer interface {
	Claim(ctx context.Context, eventID string) (bool, error)
}

// Consumer runs the fetch -> claim -> handle -> commit loop.
//
// The order matters: handlers run after a successful claim and before the
// broker ack. A crash after claiming leads to redelivery, the duplicate
// claim loses, and the redelivered message is acked without re-running the
// handlers. That yields at-most-once side effects on an at-least-once
// transport.
type Consumer struct {
	Fetcher  Fetcher
	Guard    Claimer
	Registry *Registry
}

func NewConsumer(f Fetcher, g Claimer, reg *Registry) *Consumer {
	return &Consumer{Fetcher: f, Guard: g, Registry: reg}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	log := logger.L()
	log.Info("consumer started")

	for {
		m, err := c.Fetcher.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("consumer stopped")
				return nil
			}
			log.Error("fetch failed", zap.Error(err))
			time.Sleep(200 * time.Millisecond)
			continue
		}

		c.processOne(ctx, m)
	}
}

func (c *Consumer) processOne(ctx context.Context, m kafka.Message) {
	log := logger.L()

	env, err := kafka.DecodeEnvelope(m.Value)
	if err != nil {
		// poison message: commit and skip, it will never decode
		log.Warn("bad envelope, skipping", zap.Error(err))
		if cErr := c.Fetcher.Commit(ctx, m); cErr != nil {
			log.Error("commit failed", zap.Error(cErr))
		}
		return
	}

	claimed, err := c.Guard.Claim(ctx, env.EventID)
	if err != nil {
		// claim store unavailable: leave the message unacked, the broker
		// redelivers and a later attempt recovers
		log.Error("claim failed", zap.String("event_id", env.EventID), zap.Error(err))
		return
	}
	if !claimed {
		log.Debug("duplicate delivery, skipping", zap.String("event_id", env.EventID))
		if cErr := c.Fetcher.Commit(ctx, m); cErr != nil {
			log.Error("commit failed", zap.Error(cErr))
		}
		return
	}

	if err := c.Registry.Dispatch(ctx, env); err != nil {
		// claimed but not acked: the broker redelivers, the duplicate claim
		// loses, and the message is then acked without re-running handlers
		log.Error("handler failed",
			zap.String("event_id", env.EventID),
			zap.String("event_type", env.EventType),
			zap.Error(err),
		)
		return
	}

	if err := c.Fetcher.Commit(ctx, m); err != nil {
		log.Error("commit failed", zap.String("event_id", env.EventID), zap.Error(err))
	}
}
