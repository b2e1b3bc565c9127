package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/novasocial/nova-consistency/internal/model"
	"github.com/novasocial/nova-consistency/internal/repository"
	"github.com/novasocial/nova-consistency/internal/util"
)

// ErrTransactionRequired is returned when Append is called without an open
// transaction. The atomicity guarantee only holds when the event row commits
// together with the business write.
var ErrTransactionRequired = errors.New("outbox: append requires an open transaction")

// Writer appends events to the outbox inside the caller's transaction.
// It performs local storage only; no broker calls happen here.
type Writer struct {
	repo repository.OutboxRepository
}

func NewWriter(repo repository.OutboxRepository) *Writer {
	return &Writer{repo: repo}
}

// Append serializes payload and inserts the event row using tx. The row
// becomes durable exactly when the caller commits; there is no separate
// commit step. Returns the generated event ID.
func (w *Writer) Append(ctx context.Context, tx *sqlx.Tx, aggregateType, aggregateID, eventType string, payload any) (string, error) {
	if tx == nil {
		return "", ErrTransactionRequired
	}
	if aggregateType == "" || aggregateID == "" || eventType == "" {
		return "", fmt.Errorf("outbox: aggregate_type, aggregate_id and event_type are required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	ev := model.OutboxEvent{
		ID:            util.NewID(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
	}
	if err := w.repo.Insert(ctx, tx, ev); err != nil {
		return "", fmt.Errorf("insert outbox: %w", err)
	}

	return ev.ID, nil
}
