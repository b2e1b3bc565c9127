package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/novasocial/nova-consistency/internal/model"
)

// SnapshotsRepository stores the latest aggregate state next to the outbox.
type SnapshotsRepository interface {
	// Upsert writes the snapshot inside the caller's transaction, bumping
	// version on conflict.
	Upsert(ctx context.Context, tx *sqlx.Tx, aggregateType, aggregateID string, data []byte) error
	Get(ctx context.Context, aggregateType, aggregateID string) (*model.Snapshot, error)
}

type snapshotsRepository struct {
	db *sqlx.DB
}

func NewSnapshotsRepository(db *sqlx.DB) SnapshotsRepository {
	return &snapshotsRepository{db: db}
}

func (r *snapshotsRepository) Upsert(ctx context.Context, tx *sqlx.Tx, aggregateType, aggregateID string, data []byte) error {
	const q = `
		INSERT INTO aggregate_snapshots (aggregate_type, aggregate_id, version, data, updated_at)
		VALUES (?, ?, 1, ?, NOW(6))
		ON DUPLICATE KEY UPDATE version = version + 1, data = VALUES(data), updated_at = NOW(6)
	`
	_, err := tx.ExecContext(ctx, q, aggregateType, aggregateID, data)

	return err
}

func (r *snapshotsRepository) Get(ctx context.Context, aggregateType, aggregateID string) (*model.Snapshot, error) {
	const q = `
		SELECT aggregate_type, aggregate_id, version, data, updated_at
		FROM aggregate_snapshots
		WHERE aggregate_type = ? AND aggregate_id = ?
	`
	var snap model.Snapshot
	if err := r.db.GetContext(ctx, &snap, q, aggregateType, aggregateID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &snap, nil
}
