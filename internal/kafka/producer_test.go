package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novasocial/nova-consistency/internal/model"
)

func TestTopicMapping(t *testing.T) {
	p := NewProducer(ProducerConfig{TopicPrefix: "nova"})

	assert.Equal(t, "nova.user.events", p.Topic("user.created"))
	assert.Equal(t, "nova.user.events", p.Topic("user.profile.updated"))
	assert.Equal(t, "nova.content.events", p.Topic("content.liked"))
	// no dot: the whole type is the aggregate
	assert.Equal(t, "nova.ping.events", p.Topic("ping"))
}

func TestEnvelopeRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	body, err := marshalEnvelope(model.Envelope{
		EventID:       "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		EventType:     "user.created",
		AggregateType: "user",
		AggregateID:   "42",
		Payload:       json.RawMessage(`{"name":"a"}`),
		OccurredAt:    now,
	})
	require.NoError(t, err)

	env, err := DecodeEnvelope(body)
	require.NoError(t, err)
	assert.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", env.EventID)
	assert.Equal(t, "user.created", env.EventType)
	assert.Equal(t, "user", env.AggregateType)
	assert.Equal(t, "42", env.AggregateID)
	assert.JSONEq(t, `{"name":"a"}`, string(env.Payload))
	assert.True(t, now.Equal(env.OccurredAt))
}

func TestDecodeEnvelopeRejectsBadInput(t *testing.T) {
	_, err := DecodeEnvelope([]byte("not json"))
	assert.Error(t, err)

	// an envelope without event_id cannot be deduplicated
	_, err = DecodeEnvelope([]byte(`{"event_type":"user.created"}`))
	assert.Error(t, err)
}
