package invalidation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novasocial/nova-consistency/internal/model"
)

type fakeEvictor struct {
	deletes  [][2]string
	batches  map[string][]string
	patterns [][2]string
}

func newFakeEvictor() *fakeEvictor {
	return &fakeEvictor{batches: make(map[string][]string)}
}

func (f *fakeEvictor) Evict(ctx context.Context, entityType, entityID string) error {
	f.deletes = append(f.deletes, [2]string{entityType, entityID})
	return nil
}

func (f *fakeEvictor) EvictKeys(ctx context.Context, entityType string, entityIDs ...string) error {
	f.batches[entityType] = append(f.batches[entityType], entityIDs...)
	return nil
}

func (f *fakeEvictor) EvictPattern(ctx context.Context, entityType, glob string) error {
	f.patterns = append(f.patterns, [2]string{entityType, glob})
	return nil
}

func TestApplyDelete(t *testing.T) {
	ev := newFakeEvictor()
	s := NewSubscriber(nil, "", ev)

	err := s.Apply(context.Background(), model.NewDeleteInvalidation("user", "42", "test"))
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"user", "42"}}, ev.deletes)
}

func TestApplyPattern(t *testing.T) {
	ev := newFakeEvictor()
	s := NewSubscriber(nil, "", ev)

	err := s.Apply(context.Background(), model.NewPatternInvalidation("feed", "*", "test"))
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"feed", "*"}}, ev.patterns)
}

func TestApplyBatch(t *testing.T) {
	ev := newFakeEvictor()
	s := NewSubscriber(nil, "", ev)

	err := s.Apply(context.Background(), model.NewBatchInvalidation("user", []string{"1", "2", "3"}, "test"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ev.batches["user"])
}

func TestHandleDecodesAndApplies(t *testing.T) {
	ev := newFakeEvictor()
	s := NewSubscriber(nil, "", ev)

	payload, err := json.Marshal(model.NewDeleteInvalidation("user", "42", "test"))
	require.NoError(t, err)

	s.handle(context.Background(), string(payload))
	assert.Equal(t, [][2]string{{"user", "42"}}, ev.deletes)
}

func TestHandleDropsBadPayloads(t *testing.T) {
	ev := newFakeEvictor()
	s := NewSubscriber(nil, "", ev)

	s.handle(context.Background(), "not json")
	s.handle(context.Background(), `{"action":"explode","entity_type":"user"}`)

	assert.Empty(t, ev.deletes)
	assert.Empty(t, ev.patterns)
	assert.Empty(t, ev.batches)
}

func TestDefaultChannelApplied(t *testing.T) {
	s := NewSubscriber(nil, "", newFakeEvictor())
	assert.Equal(t, DefaultChannel, s.channel)

	p := NewPublisher(nil, "", "svc")
	assert.Equal(t, DefaultChannel, p.channel)
}
