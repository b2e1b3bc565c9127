package model

import "time"

// Snapshot is the latest materialized state of an aggregate, persisted in
// aggregate_snapshots next to the outbox. It is what the two-tier cache
// serves on the read path.
type Snapshot struct {
	AggregateType string    `db:"aggregate_type" json:"aggregate_type"`
	AggregateID   string    `db:"aggregate_id" json:"aggregate_id"`
	Version       int64     `db:"version" json:"version"`
	Data          []byte    `db:"data" json:"data"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
