package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/novasocial/nova-consistency/internal/model"
)

// ArchiveRepository keeps delivered events in ClickHouse for reporting.
type ArchiveRepository interface {
	Insert(ctx context.Context, ev model.ArchivedEvent) error
	ListByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]model.ArchivedEvent, error)
}

type archiveRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewArchiveRepository(ch *sqlx.DB) ArchiveRepository {
	return &archiveRepository{ch: ch}
}

func (r *archiveRepository) Insert(ctx context.Context, ev model.ArchivedEvent) error {
	const q = `
		INSERT INTO nova.archived_events
			(event_id, event_type, aggregate_type, aggregate_id, payload, occurred_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, now64(3))
	`
	_, err := r.ch.ExecContext(ctx, q,
		ev.EventID, ev.EventType, ev.AggregateType, ev.AggregateID, ev.Payload, ev.OccurredAt)

	return err
}

func (r *archiveRepository) ListByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]model.ArchivedEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT event_id, event_type, aggregate_type, aggregate_id, payload, occurred_at, archived_at
		FROM nova.archived_events
		WHERE aggregate_type = ?
	`
	args := []any{aggregateType}

	if aggregateID != "" {
		q += " AND aggregate_id = ?"
		args = append(args, aggregateID)
	}

	q += " ORDER BY occurred_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.ArchivedEvent
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
