package invalidation

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/novasocial/nova-consistency/internal/logger"
	"github.com/novasocial/nova-consistency/internal/metrics"
	"github.com/novasocial/nova-consistency/internal/model"
)

// Evictor is the cache surface the subscriber drives (cache.Tiered).
type Evictor interface {
	Evict(ctx context.Context, entityType, entityID string) error
	EvictKeys(ctx context.Context, entityType string, entityIDs ...string) error
	EvictPattern(ctx context.Context, entityType, glob string) error
}

// Subscriber listens on the broadcast channel and evicts matching entries
// from both cache tiers. Messages arrive at-least-once and unordered;
// eviction is idempotent, so a duplicate or late message costs at most one
// extra cache miss.
type Subscriber struct {
	rdb     *redis.Client
	channel string
	cache   Evictor
}

func NewSubscriber(rdb *redis.Client, channel string, cache Evictor) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Subscriber{rdb: rdb, channel: channel, cache: cache}
}

// Run blocks on the subscription until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.rdb.Subscribe(ctx, s.channel)
	defer func() { _ = pubsub.Close() }()

	// fail fast if the subscription never establishes
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	logger.L().Info("invalidation subscriber started", zap.String("channel", s.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			logger.L().Info("invalidation subscriber stopped")
			return nil
		case m, ok := <-ch:
			if !ok {
				logger.L().Warn("invalidation subscription closed")
				return nil
			}
			s.handle(ctx, m.Payload)
		}
	}
}

// handle decodes one payload and applies the eviction. Undecodable payloads
// are logged and dropped.
func (s *Subscriber) handle(ctx context.Context, payload string) {
	log := logger.L()

	var msg model.InvalidationMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		log.Error("bad invalidation payload", zap.Error(err))
		return
	}
	if !msg.Action.Valid() {
		log.Error("unknown invalidation action", zap.String("action", string(msg.Action)))
		return
	}

	metrics.InvalidationMessages.WithLabelValues("received", msg.Action.String()).Inc()

	if err := s.Apply(ctx, msg); err != nil {
		log.Warn("eviction failed, TTL will expire the entry",
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
	}
}

// Apply evicts whatever the message targets from both tiers.
func (s *Subscriber) Apply(ctx context.Context, msg model.InvalidationMessage) error {
	switch msg.Action {
	case model.InvalidatePattern:
		return s.cache.EvictPattern(ctx, msg.EntityType, msg.Pattern)
	case model.InvalidateBatch:
		return s.cache.EvictKeys(ctx, msg.EntityType, msg.EntityIDs...)
	default:
		return s.cache.Evict(ctx, msg.EntityType, msg.EntityID)
	}
}
