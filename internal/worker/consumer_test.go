package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novasocial/nova-consistency/internal/kafka"
	"github.com/novasocial/nova-consistency/internal/model"
)

type fakeFetcher struct {
	committed []kafka.Message
	commitErr error
}

func (f *fakeFetcher) Fetch(ctx context.Context) (kafka.Message, error) {
	panic("not used; processOne is driven directly")
}

func (f *fakeFetcher) Commit(ctx context.Context, m kafka.Message) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = append(f.committed, m)
	return nil
}

type fakeGuard struct {
	mu      sync.Mutex
	seen    map[string]bool
	claimFn func(eventID string) (bool, error)
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{seen: make(map[string]bool)}
}

func (g *fakeGuard) Claim(ctx context.Context, eventID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.claimFn != nil {
		return g.claimFn(eventID)
	}
	if g.seen[eventID] {
		return false, nil
	}
	g.seen[eventID] = true
	return true, nil
}

func envelopeMessage(t *testing.T, eventID, eventType string) kafka.Message {
	t.Helper()
	body, err := json.Marshal(model.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: "user",
		AggregateID:   "42",
		Payload:       json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	return kafka.Message{Value: body}
}

func TestProcessOneRunsHandlerAndCommits(t *testing.T) {
	fetcher := &fakeFetcher{}
	reg := NewRegistry()

	var handled []string
	reg.On("user.created", func(ctx context.Context, env model.Envelope) error {
		handled = append(handled, env.EventID)
		return nil
	})

	c := NewConsumer(fetcher, newFakeGuard(), reg)
	c.processOne(context.Background(), envelopeMessage(t, "ev-1", "user.created"))

	assert.Equal(t, []string{"ev-1"}, handled)
	assert.Len(t, fetcher.committed, 1)
}

func TestProcessOneDuplicateAckedWithoutHandler(t *testing.T) {
	fetcher := &fakeFetcher{}
	guard := newFakeGuard()
	reg := NewRegistry()

	calls := 0
	reg.On("user.created", func(ctx context.Context, env model.Envelope) error {
		calls++
		return nil
	})

	c := NewConsumer(fetcher, guard, reg)
	msg := envelopeMessage(t, "ev-1", "user.created")
	c.processOne(context.Background(), msg)
	c.processOne(context.Background(), msg) // redelivery

	assert.Equal(t, 1, calls, "handler must not re-run on redelivery")
	assert.Len(t, fetcher.committed, 2, "the duplicate is still acked")
}

func TestProcessOnePoisonMessageSkipped(t *testing.T) {
	fetcher := &fakeFetcher{}
	reg := NewRegistry()

	calls := 0
	reg.OnAny(func(ctx context.Context, env model.Envelope) error {
		calls++
		return nil
	})

	c := NewConsumer(fetcher, newFakeGuard(), reg)
	c.processOne(context.Background(), kafka.Message{Value: []byte("not json")})
	c.processOne(context.Background(), kafka.Message{Value: []byte(`{"event_type":"x"}`)}) // no event_id

	assert.Zero(t, calls)
	assert.Len(t, fetcher.committed, 2, "undecodable messages are acked, they never improve")
}

func TestProcessOneClaimErrorLeavesMessageUnacked(t *testing.T) {
	fetcher := &fakeFetcher{}
	guard := newFakeGuard()
	guard.claimFn = func(string) (bool, error) { return false, errors.New("store down") }

	c := NewConsumer(fetcher, guard, NewRegistry())
	c.processOne(context.Background(), envelopeMessage(t, "ev-1", "user.created"))

	assert.Empty(t, fetcher.committed, "redelivery must retry the claim")
}

func TestProcessOneHandlerErrorLeavesMessageUnacked(t *testing.T) {
	fetcher := &fakeFetcher{}
	guard := newFakeGuard()
	reg := NewRegistry()
	reg.On("user.created", func(ctx context.Context, env model.Envelope) error {
		return errors.New("downstream failed")
	})

	c := NewConsumer(fetcher, guard, reg)
	msg := envelopeMessage(t, "ev-1", "user.created")
	c.processOne(context.Background(), msg)
	assert.Empty(t, fetcher.committed)

	// redelivery: the claim is already taken, so the message is acked
	// without re-running the failed handler
	c.processOne(context.Background(), msg)
	assert.Len(t, fetcher.committed, 1)
}
