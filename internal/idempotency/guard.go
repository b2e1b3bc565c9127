package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/novasocial/nova-consistency/internal/metrics"
)

// ErrInvalidEventID is returned for IDs the marker table cannot hold.
var ErrInvalidEventID = errors.New("idempotency: invalid event id")

const maxEventIDLen = 255

// Store is the durable marker store backing the guard
// (repository.ProcessedEventsRepository in production).
type Store interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	Sweep(ctx context.Context, before time.Time) (int64, error)
}

// Guard gives handlers at-most-once execution per event: the first caller
// to Claim an event_id wins, every other concurrent or later caller loses.
// Enforcement is the store's unique constraint, not an application lock.
type Guard struct {
	store     Store
	retention time.Duration
}

// NewGuard builds a guard. retention controls how long markers survive and
// must exceed the broker's maximum redelivery window.
func NewGuard(store Store, retention time.Duration) *Guard {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &Guard{store: store, retention: retention}
}

// Claim records the event as processed. Returns true when this caller won,
// false when the event was already processed (normal control flow, not an
// error).
func (g *Guard) Claim(ctx context.Context, eventID string) (bool, error) {
	if err := validateEventID(eventID); err != nil {
		return false, err
	}

	claimed, err := g.store.Claim(ctx, eventID)
	if err != nil {
		metrics.IdempotencyClaims.WithLabelValues("error").Inc()
		return false, fmt.Errorf("claim %s: %w", eventID, err)
	}
	if claimed {
		metrics.IdempotencyClaims.WithLabelValues("claimed").Inc()
	} else {
		metrics.IdempotencyClaims.WithLabelValues("duplicate").Inc()
	}

	return claimed, nil
}

// IsProcessed reports whether the event was already claimed, without claiming.
func (g *Guard) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	if err := validateEventID(eventID); err != nil {
		return false, err
	}
	return g.store.IsProcessed(ctx, eventID)
}

// Sweep deletes markers older than the retention window and returns how many
// were removed.
func (g *Guard) Sweep(ctx context.Context) (int64, error) {
	return g.store.Sweep(ctx, time.Now().Add(-g.retention))
}

// Retention exposes the configured window (the sweeper logs it).
func (g *Guard) Retention() time.Duration { return g.retention }

func validateEventID(eventID string) error {
	if eventID == "" {
		return fmt.Errorf("%w: empty", ErrInvalidEventID)
	}
	if len(eventID) > maxEventIDLen {
		return fmt.Errorf("%w: %d characters (max %d)", ErrInvalidEventID, len(eventID), maxEventIDLen)
	}
	return nil
}
