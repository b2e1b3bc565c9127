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

// DefaultChannel is the shared broadcast channel for cache invalidation.
const DefaultChannel = "cache:invalidate"

// Publisher broadcasts invalidation messages over Redis pub/sub.
//
// Publishing is fire-and-forget: failures are logged, never retried. Cache
// entries carry a TTL as the correctness backstop, so a lost invalidation
// costs bounded staleness, not correctness.
type Publisher struct {
	rdb     *redis.Client
	channel string
	source  string
}

func NewPublisher(rdb *redis.Client, channel, sourceService string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{rdb: rdb, channel: channel, source: sourceService}
}

// Invalidate broadcasts "entity changed, evict it everywhere".
func (p *Publisher) Invalidate(ctx context.Context, entityType, entityID string) {
	p.publish(ctx, model.NewDeleteInvalidation(entityType, entityID, p.source))
}

// InvalidatePattern broadcasts a glob, e.g. ("feed", "*").
func (p *Publisher) InvalidatePattern(ctx context.Context, entityType, pattern string) {
	p.publish(ctx, model.NewPatternInvalidation(entityType, pattern, p.source))
}

// InvalidateBatch broadcasts an explicit ID list.
func (p *Publisher) InvalidateBatch(ctx context.Context, entityType string, entityIDs []string) {
	if len(entityIDs) == 0 {
		return
	}
	p.publish(ctx, model.NewBatchInvalidation(entityType, entityIDs, p.source))
}

func (p *Publisher) publish(ctx context.Context, msg model.InvalidationMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.L().Error("marshal invalidation failed", zap.Error(err))
		return
	}

	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		logger.L().Warn("invalidation publish failed, relying on TTL",
			zap.String("message_id", msg.MessageID),
			zap.String("entity_type", msg.EntityType),
			zap.Error(err),
		)
		return
	}

	metrics.InvalidationMessages.WithLabelValues("published", msg.Action.String()).Inc()
}
