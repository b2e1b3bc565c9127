package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// ProcessedEventsRepository tracks consumed event IDs per consumer group.
type ProcessedEventsRepository interface {
	// Claim atomically records event_id. Returns false when another claim
	// already exists (zero affected rows, not an error).
	Claim(ctx context.Context, eventID string) (bool, error)
	// IsProcessed reports whether the event was already claimed.
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	// Sweep deletes markers processed before the cutoff.
	Sweep(ctx context.Context, before time.Time) (int64, error)
}

type processedEventsRepository struct {
	db *sqlx.DB
}

func NewProcessedEventsRepository(db *sqlx.DB) ProcessedEventsRepository {
	return &processedEventsRepository{db: db}
}

func (r *processedEventsRepository) Claim(ctx context.Context, eventID string) (bool, error) {
	// INSERT IGNORE: the losing concurrent claimant sees 0 affected rows.
	const q = `INSERT IGNORE INTO processed_events (event_id, processed_at) VALUES (?, NOW(6))`
	res, err := r.db.ExecContext(ctx, q, eventID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (r *processedEventsRepository) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = ?)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, q, eventID); err != nil {
		return false, err
	}

	return exists, nil
}

func (r *processedEventsRepository) Sweep(ctx context.Context, before time.Time) (int64, error) {
	const q = `DELETE FROM processed_events WHERE processed_at < ?`
	res, err := r.db.ExecContext(ctx, q, before)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
