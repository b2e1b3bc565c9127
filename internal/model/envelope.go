package model

import (
	"encoding/json"
	"time"
)

// Envelope is the message body published to Kafka for every outbox event.
// The payload schema is owned by the producing service.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
