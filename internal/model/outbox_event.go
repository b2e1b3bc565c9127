package model

import "time"

// OutboxEvent is the DB entity persisted in outbox_events, written in the
// same transaction as the business change and relayed to Kafka afterwards.
type OutboxEvent struct {
	ID            string     `db:"id"`             // ULID, time-ordered
	AggregateType string     `db:"aggregate_type"` // e.g. "user", "content"
	AggregateID   string     `db:"aggregate_id"`
	EventType     string     `db:"event_type"` // e.g. "user.created"
	Payload       []byte     `db:"payload"`
	CreatedAt     time.Time  `db:"created_at"`
	PublishedAt   *time.Time `db:"published_at"` // nil until broker ack
	RetryCount    int        `db:"retry_count"`
	LastError     *string    `db:"last_error"`
	NextAttemptAt time.Time  `db:"next_attempt_at"` // backoff gate for re-selection
}

// Published reports whether the relay has delivered this event.
func (e OutboxEvent) Published() bool {
	return e.PublishedAt != nil
}
