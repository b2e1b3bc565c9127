package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novasocial/nova-consistency/internal/model"
	"github.com/novasocial/nova-consistency/internal/repository"
)

// memOutbox mimics claim semantics: unpublished rows under the retry ceiling
// and past their next attempt are claimable, oldest first.
type memOutbox struct {
	mu     sync.Mutex
	events []*model.OutboxEvent
}

func (m *memOutbox) add(id, eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, &model.OutboxEvent{
		ID:            id,
		AggregateType: "user",
		AggregateID:   "42",
		EventType:     eventType,
		Payload:       []byte(`{}`),
		CreatedAt:     time.Now(),
		NextAttemptAt: time.Now(),
	})
}

func (m *memOutbox) get(id string) *model.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.events {
		if ev.ID == id {
			return ev
		}
	}
	return nil
}

func (m *memOutbox) Insert(ctx context.Context, tx *sqlx.Tx, ev model.OutboxEvent) error {
	panic("not used")
}

func (m *memOutbox) ClaimBatch(ctx context.Context, limit, maxRetries int) (repository.OutboxClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var batch []model.OutboxEvent
	for _, ev := range m.events {
		if ev.PublishedAt == nil && ev.RetryCount < maxRetries && !ev.NextAttemptAt.After(now) {
			batch = append(batch, *ev)
		}
		if len(batch) >= limit {
			break
		}
	}
	return &memClaim{outbox: m, events: batch}, nil
}

func (m *memOutbox) PendingStats(ctx context.Context) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, ev := range m.events {
		if ev.PublishedAt == nil {
			n++
		}
	}
	return n, 0, nil
}

func (m *memOutbox) SweepPublished(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	var n int64
	for _, ev := range m.events {
		if ev.PublishedAt != nil && ev.PublishedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, ev)
	}
	m.events = kept
	return n, nil
}

func (m *memOutbox) ReplaySince(ctx context.Context, ts time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, ev := range m.events {
		if !ev.CreatedAt.Before(ts) {
			ev.PublishedAt = nil
			ev.RetryCount = 0
			ev.NextAttemptAt = time.Now()
			n++
		}
	}
	return n, nil
}

type memClaim struct {
	outbox     *memOutbox
	events     []model.OutboxEvent
	committed  bool
	rolledBack bool
}

func (c *memClaim) Events() []model.OutboxEvent { return c.events }

func (c *memClaim) MarkPublished(ctx context.Context, eventID string) error {
	if ev := c.outbox.get(eventID); ev != nil {
		now := time.Now()
		ev.PublishedAt = &now
	}
	return nil
}

func (c *memClaim) MarkFailed(ctx context.Context, eventID, lastError string, nextAttempt time.Time) error {
	if ev := c.outbox.get(eventID); ev != nil {
		ev.RetryCount++
		ev.LastError = &lastError
		ev.NextAttemptAt = nextAttempt
	}
	return nil
}

func (c *memClaim) Commit() error   { c.committed = true; return nil }
func (c *memClaim) Rollback() error { c.rolledBack = true; return nil }

type scriptedPublisher struct {
	mu        sync.Mutex
	failures  map[string]int // remaining failures per event
	published []string
}

func (p *scriptedPublisher) Publish(ctx context.Context, ev model.OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := p.failures[ev.ID]; n > 0 {
		p.failures[ev.ID] = n - 1
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, ev.ID)
	return nil
}

func TestCyclePublishesBatch(t *testing.T) {
	outbox := &memOutbox{}
	outbox.add("ev-1", "user.created")
	outbox.add("ev-2", "user.updated")

	pub := &scriptedPublisher{failures: map[string]int{}}
	relay := NewRelay(outbox, pub)

	n, err := relay.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"ev-1", "ev-2"}, pub.published)
	assert.True(t, outbox.get("ev-1").Published())
	assert.True(t, outbox.get("ev-2").Published())
}

func TestCycleRetriesUntilSuccess(t *testing.T) {
	outbox := &memOutbox{}
	outbox.add("ev-1", "user.created")

	pub := &scriptedPublisher{failures: map[string]int{"ev-1": 2}}
	relay := NewRelay(outbox, pub)

	for i := 0; i < 3; i++ {
		// rewind the backoff gate so every cycle gets one attempt
		outbox.get("ev-1").NextAttemptAt = time.Now().Add(-time.Second)
		_, err := relay.Cycle(context.Background())
		require.NoError(t, err)
	}

	ev := outbox.get("ev-1")
	assert.True(t, ev.Published())
	assert.Equal(t, 2, ev.RetryCount)
	require.NotNil(t, ev.LastError)
	assert.Equal(t, "broker unavailable", *ev.LastError)
}

func TestCycleStopsAtRetryCeiling(t *testing.T) {
	outbox := &memOutbox{}
	outbox.add("ev-1", "user.created")

	pub := &scriptedPublisher{failures: map[string]int{"ev-1": 100}}
	relay := NewRelay(outbox, pub)
	relay.MaxRetries = 3

	for i := 0; i < 10; i++ {
		outbox.get("ev-1").NextAttemptAt = time.Now().Add(-time.Second)
		_, err := relay.Cycle(context.Background())
		require.NoError(t, err)
	}

	ev := outbox.get("ev-1")
	assert.False(t, ev.Published())
	assert.Equal(t, 3, ev.RetryCount, "rows at the ceiling are never claimed again")
	assert.Empty(t, pub.published)
}

func TestCycleOtherEventsSurviveOneFailure(t *testing.T) {
	outbox := &memOutbox{}
	outbox.add("ev-bad", "user.created")
	outbox.add("ev-good", "user.updated")

	pub := &scriptedPublisher{failures: map[string]int{"ev-bad": 100}}
	relay := NewRelay(outbox, pub)

	n, err := relay.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, outbox.get("ev-bad").Published())
	assert.True(t, outbox.get("ev-good").Published())
}

func TestReplayMakesPublishedRowsClaimable(t *testing.T) {
	outbox := &memOutbox{}
	outbox.add("ev-1", "user.created")

	pub := &scriptedPublisher{failures: map[string]int{}}
	relay := NewRelay(outbox, pub)

	_, err := relay.Cycle(context.Background())
	require.NoError(t, err)
	require.True(t, outbox.get("ev-1").Published())

	n, err := outbox.ReplaySince(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// the duplicate send is expected; consumers dedupe by event_id
	n2, err := relay.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n2)
	assert.Equal(t, []string{"ev-1", "ev-1"}, pub.published)
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	relay := &Relay{BackoffBase: time.Second, BackoffMax: 5 * time.Minute}

	assert.Equal(t, 1*time.Second, relay.Backoff(0))
	assert.Equal(t, 2*time.Second, relay.Backoff(1))
	assert.Equal(t, 4*time.Second, relay.Backoff(2))
	assert.Equal(t, 8*time.Second, relay.Backoff(3))
	assert.Equal(t, 16*time.Second, relay.Backoff(4))
	assert.Equal(t, 5*time.Minute, relay.Backoff(20))
}

func TestBackoffDefaults(t *testing.T) {
	relay := &Relay{}
	assert.Equal(t, time.Second, relay.Backoff(0))
	assert.Equal(t, 5*time.Minute, relay.Backoff(100))
}
