package outbox

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"limbopet-arena/internal/store"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink writes each event to "<prefix>.<event_type>", keyed by the
// aggregate id so one match stays on one partition.
type KafkaSink struct {
	writer messageWriter
	prefix string
}

func NewKafkaSink(brokers []string, prefix string) *KafkaSink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaSink{writer: w, prefix: strings.TrimSuffix(prefix, ".")}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Publish(ctx context.Context, ev store.OutboxEvent) error {
	msg, err := k.message(ev)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, msg)
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

func (k *KafkaSink) topic(eventType string) string {
	if k.prefix == "" {
		return eventType
	}
	return k.prefix + "." + eventType
}

func (k *KafkaSink) message(ev store.OutboxEvent) (kafka.Message, error) {
	value, err := json.Marshal(struct {
		EventID       string          `json:"event_id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
		OccurredAt    time.Time       `json:"occurred_at"`
	}{ev.EventID, ev.AggregateType, ev.AggregateID, ev.EventType, ev.Payload, ev.OccurredAt})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Topic: k.topic(ev.EventType),
		Key:   []byte(ev.AggregateID),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.EventID)},
			{Key: "event_type", Value: []byte(ev.EventType)},
		},
	}, nil
}
