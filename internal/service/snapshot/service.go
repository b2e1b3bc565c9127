package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/novasocial/nova-consistency/internal/cache"
	"github.com/novasocial/nova-consistency/internal/invalidation"
	"github.com/novasocial/nova-consistency/internal/logger"
	"github.com/novasocial/nova-consistency/internal/model"
	"github.com/novasocial/nova-consistency/internal/outbox"
	"github.com/novasocial/nova-consistency/internal/repository"
)

// Service is the producer-side write path: one transaction upserts the
// aggregate snapshot and appends the outbox event, so the state change and
// the intent to publish commit or roll back together.
type Service struct {
	db     *sqlx.DB
	snaps  repository.SnapshotsRepository
	writer *outbox.Writer
	cache  *cache.Tiered
	inval  *invalidation.Publisher
	ttl    time.Duration
}

func New(
	db *sqlx.DB,
	snaps repository.SnapshotsRepository,
	writer *outbox.Writer,
	tiered *cache.Tiered,
	inval *invalidation.Publisher,
	ttl time.Duration,
) *Service {
	return &Service{
		db:     db,
		snaps:  snaps,
		writer: writer,
		cache:  tiered,
		inval:  inval,
		ttl:    ttl,
	}
}

// Record applies an aggregate change and its event atomically. After commit
// it evicts its own cache copy and broadcasts invalidation to every other
// holder; both are downstream of the commit and never awaited by callers.
// Returns the generated event ID.
func (s *Service) Record(ctx context.Context, aggregateType, aggregateID, eventType string, payload json.RawMessage) (string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.snaps.Upsert(ctx, tx, aggregateType, aggregateID, payload); err != nil {
		return "", fmt.Errorf("upsert snapshot: %w", err)
	}

	eventID, err := s.writer.Append(ctx, tx, aggregateType, aggregateID, eventType, payload)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	// write-then-invalidate-own-copy, broadcast to others
	if err := s.cache.Evict(ctx, aggregateType, aggregateID); err != nil {
		logger.L().Warn("own-copy eviction failed", zap.String("aggregate_id", aggregateID), zap.Error(err))
	}
	s.inval.Invalidate(ctx, aggregateType, aggregateID)

	return eventID, nil
}

// Get serves the snapshot through the two-tier cache, falling back to MySQL
// and populating the cache on a miss. Returns nil when the aggregate does
// not exist.
func (s *Service) Get(ctx context.Context, aggregateType, aggregateID string) (*model.Snapshot, error) {
	if raw, ok := s.cache.Get(ctx, aggregateType, aggregateID); ok {
		var snap model.Snapshot
		if err := json.Unmarshal(raw, &snap); err == nil {
			return &snap, nil
		}
		// corrupted entry: drop it and fall through to the store
		_ = s.cache.Evict(ctx, aggregateType, aggregateID)
	}

	snap, err := s.snaps.Get(ctx, aggregateType, aggregateID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}

	if raw, err := json.Marshal(snap); err == nil {
		if err := s.cache.Put(ctx, aggregateType, aggregateID, raw, s.ttl); err != nil {
			logger.L().Warn("cache put failed", zap.String("aggregate_id", aggregateID), zap.Error(err))
		}
	}

	return snap, nil
}
