package model

import "time"

// ProcessedEvent marks an event as consumed; the unique key on event_id is
// what makes concurrent claims resolve to exactly one winner.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	ProcessedAt time.Time `db:"processed_at"`
}
