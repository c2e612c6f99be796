package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// LedgerEvent is the message published for every committed ledger entry and
// registration.
type LedgerEvent struct {
	Event      string      `json:"event"`
	AccountIDs []string    `json:"account_ids"`
	Data       interface{} `json:"data"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Publisher sends ledger events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, key string, event LedgerEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireOne,
		},
		topic: topic,
	}
}

// Publish writes event keyed by key, so all events of one account land on the
// same partition.
func (k *KafkaPublisher) Publish(ctx context.Context, key string, event LedgerEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	v, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: v,
		Time:  event.OccurredAt,
	})
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// NoopPublisher drops every event. It is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, key string, event LedgerEvent) error {
	logrus.WithFields(logrus.Fields{"event": event.Event, "key": key}).Debug("kafka disabled, event dropped")
	return nil
}

func (NoopPublisher) Close() error { return nil }
