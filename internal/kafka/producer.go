package kafka

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/novasocial/nova-consistency/internal/model"
)

// ProducerConfig configures the relay-side writer.
type ProducerConfig struct {
	Brokers     []string
	TopicPrefix string // e.g. "nova" -> topics "nova.<aggregate>.events"
}

// Producer publishes outbox events to Kafka keyed by aggregate_id so the
// broker preserves per-entity order. Duplicate sends after a relay crash
// are expected; consumers deduplicate by event_id.
type Producer struct {
	w      *kafka.Writer
	prefix string
}

func NewProducer(cfg ProducerConfig) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}

	return &Producer{w: w, prefix: cfg.TopicPrefix}
}

// Topic maps an event type to its Kafka topic: "user.created" -> "nova.user.events".
func (p *Producer) Topic(eventType string) string {
	aggregate := eventType
	if i := strings.Index(eventType, "."); i > 0 {
		aggregate = eventType[:i]
	}

	return p.prefix + "." + aggregate + ".events"
}

// Publish sends one event and waits for broker acknowledgment.
func (p *Producer) Publish(ctx context.Context, ev model.OutboxEvent) error {
	env := model.Envelope{
		EventID:       ev.ID,
		EventType:     ev.EventType,
		AggregateType: ev.AggregateType,
		AggregateID:   ev.AggregateID,
		Payload:       ev.Payload,
		OccurredAt:    ev.CreatedAt,
	}
	value, err := marshalEnvelope(env)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.Topic(ev.EventType),
		Key:   []byte(ev.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.ID)},
			{Key: "event_type", Value: []byte(ev.EventType)},
			{Key: "aggregate_type", Value: []byte(ev.AggregateType)},
			{Key: "aggregate_id", Value: []byte(ev.AggregateID)},
			{Key: "created_at", Value: []byte(ev.CreatedAt.UTC().Format(time.RFC3339Nano))},
		},
	}

	return p.w.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error { return p.w.Close() }
