package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/novasocial/nova-consistency/internal/model"
)

// OutboxClaim is a batch of unpublished rows locked by one relay instance.
// Row locks are held until Commit/Rollback, so concurrent relays skip the
// same rows via SKIP LOCKED instead of double-publishing them.
type OutboxClaim interface {
	Events() []model.OutboxEvent
	// MarkPublished sets published_at for an event inside the claim transaction.
	MarkPublished(ctx context.Context, eventID string) error
	// MarkFailed bumps retry_count, stores the error and the next eligible time.
	MarkFailed(ctx context.Context, eventID, lastError string, nextAttempt time.Time) error
	Commit() error
	Rollback() error
}

// OutboxRepository defines persistence methods for the outbox_events table.
type OutboxRepository interface {
	// Insert writes a single outbox event inside the caller's transaction.
	Insert(ctx context.Context, tx *sqlx.Tx, ev model.OutboxEvent) error
	// ClaimBatch locks up to limit due unpublished rows (oldest first).
	ClaimBatch(ctx context.Context, limit, maxRetries int) (OutboxClaim, error)
	// PendingStats returns the unpublished count and the oldest pending age.
	PendingStats(ctx context.Context) (int64, time.Duration, error)
	// SweepPublished deletes rows published before the cutoff.
	SweepPublished(ctx context.Context, before time.Time) (int64, error)
	// ReplaySince resets publish state for rows created at or after ts.
	ReplaySince(ctx context.Context, ts time.Time) (int64, error)
}

type outboxRepository struct {
	db *sqlx.DB
}

func NewOutboxRepository(db *sqlx.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Insert(ctx context.Context, tx *sqlx.Tx, ev model.OutboxEvent) error {
	const q = `
		INSERT INTO outbox_events
			(id, aggregate_type, aggregate_id, event_type, payload, created_at, retry_count, next_attempt_at)
		VALUES (?, ?, ?, ?, ?, NOW(6), 0, NOW(6))
	`
	_, err := tx.ExecContext(ctx, q, ev.ID, ev.AggregateType, ev.AggregateID, ev.EventType, ev.Payload)

	return err
}

func (r *outboxRepository) ClaimBatch(ctx context.Context, limit, maxRetries int) (OutboxClaim, error) {
	if limit <= 0 {
		limit = 100
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	const q = `
		SELECT id, aggregate_type, aggregate_id, event_type, payload,
		       created_at, published_at, retry_count, last_error, next_attempt_at
		FROM outbox_events
		WHERE published_at IS NULL
		  AND retry_count < ?
		  AND next_attempt_at <= NOW(6)
		ORDER BY created_at
		LIMIT ?
		FOR UPDATE SKIP LOCKED
	`
	var events []model.OutboxEvent
	if err := tx.SelectContext(ctx, &events, q, maxRetries, limit); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	return &outboxClaim{tx: tx, events: events}, nil
}

func (r *outboxRepository) PendingStats(ctx context.Context) (int64, time.Duration, error) {
	const q = `
		SELECT COUNT(*)                                                  AS pending,
		       COALESCE(TIMESTAMPDIFF(SECOND, MIN(created_at), NOW()), 0) AS age_seconds
		FROM outbox_events
		WHERE published_at IS NULL
	`
	var row struct {
		Pending    int64 `db:"pending"`
		AgeSeconds int64 `db:"age_seconds"`
	}
	if err := r.db.GetContext(ctx, &row, q); err != nil {
		return 0, 0, err
	}
	if row.Pending == 0 {
		return 0, 0, nil
	}

	return row.Pending, time.Duration(row.AgeSeconds) * time.Second, nil
}

func (r *outboxRepository) SweepPublished(ctx context.Context, before time.Time) (int64, error) {
	const q = `DELETE FROM outbox_events WHERE published_at IS NOT NULL AND published_at < ?`
	res, err := r.db.ExecContext(ctx, q, before)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func (r *outboxRepository) ReplaySince(ctx context.Context, ts time.Time) (int64, error) {
	const q = `
		UPDATE outbox_events
		SET published_at = NULL, retry_count = 0, last_error = NULL, next_attempt_at = NOW(6)
		WHERE created_at >= ?
	`
	res, err := r.db.ExecContext(ctx, q, ts)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

type outboxClaim struct {
	tx     *sqlx.Tx
	events []model.OutboxEvent
}

func (c *outboxClaim) Events() []model.OutboxEvent { return c.events }

func (c *outboxClaim) MarkPublished(ctx context.Context, eventID string) error {
	const q = `UPDATE outbox_events SET published_at = NOW(6) WHERE id = ? AND published_at IS NULL`
	_, err := c.tx.ExecContext(ctx, q, eventID)

	return err
}

func (c *outboxClaim) MarkFailed(ctx context.Context, eventID, lastError string, nextAttempt time.Time) error {
	// keep the column bounded; MySQL TEXT would also work but errors repeat
	if len(lastError) > 1024 {
		lastError = lastError[:1024]
	}
	const q = `
		UPDATE outbox_events
		SET retry_count = retry_count + 1, last_error = ?, next_attempt_at = ?
		WHERE id = ?
	`
	_, err := c.tx.ExecContext(ctx, q, lastError, nextAttempt, eventID)

	return err
}

func (c *outboxClaim) Commit() error   { return c.tx.Commit() }
func (c *outboxClaim) Rollback() error { return c.tx.Rollback() }
