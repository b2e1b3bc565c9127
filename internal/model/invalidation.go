package model

import (
	"time"

	"github.com/google/uuid"
)

type InvalidationAction string

const (
	InvalidateDelete  InvalidationAction = "delete"
	InvalidatePattern InvalidationAction = "pattern"
	InvalidateBatch   InvalidationAction = "batch"
)

func (a InvalidationAction) String() string { return string(a) }

func (a InvalidationAction) Valid() bool {
	return a == InvalidateDelete || a == InvalidatePattern || a == InvalidateBatch
}

// InvalidationMessage is broadcast over the shared Redis channel to tell
// every cache holder that an entity's cached value is stale. Delivery is
// at-least-once and unordered; eviction must stay idempotent.
type InvalidationMessage struct {
	MessageID     string             `json:"message_id"`
	Action        InvalidationAction `json:"action"`
	EntityType    string             `json:"entity_type"`
	EntityID      string             `json:"entity_id,omitempty"`
	Pattern       string             `json:"pattern,omitempty"`
	EntityIDs     []string           `json:"entity_ids,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
	SourceService string             `json:"source_service"`
	Reason        string             `json:"reason,omitempty"`
}

// NewDeleteInvalidation targets a single entity.
func NewDeleteInvalidation(entityType, entityID, source string) InvalidationMessage {
	return InvalidationMessage{
		MessageID:     uuid.NewString(),
		Action:        InvalidateDelete,
		EntityType:    entityType,
		EntityID:      entityID,
		Timestamp:     time.Now().UTC(),
		SourceService: source,
	}
}

// NewPatternInvalidation targets every key of entityType matching a glob.
func NewPatternInvalidation(entityType, pattern, source string) InvalidationMessage {
	return InvalidationMessage{
		MessageID:     uuid.NewString(),
		Action:        InvalidatePattern,
		EntityType:    entityType,
		Pattern:       pattern,
		Timestamp:     time.Now().UTC(),
		SourceService: source,
	}
}

// NewBatchInvalidation targets an explicit list of entity IDs.
func NewBatchInvalidation(entityType string, entityIDs []string, source string) InvalidationMessage {
	return InvalidationMessage{
		MessageID:     uuid.NewString(),
		Action:        InvalidateBatch,
		EntityType:    entityType,
		EntityIDs:     entityIDs,
		Timestamp:     time.Now().UTC(),
		SourceService: source,
	}
}
