package model

import "time"

// ArchivedEvent is the ClickHouse row kept per delivered event for
// reporting and audit, independent of the outbox retention sweep.
type ArchivedEvent struct {
	EventID       string    `db:"event_id" json:"event_id"`
	EventType     string    `db:"event_type" json:"event_type"`
	AggregateType string    `db:"aggregate_type" json:"aggregate_type"`
	AggregateID   string    `db:"aggregate_id" json:"aggregate_id"`
	Payload       string    `db:"payload" json:"payload"`
	OccurredAt    time.Time `db:"occurred_at" json:"occurred_at"`
	ArchivedAt    time.Time `db:"archived_at" json:"archived_at"`
}
