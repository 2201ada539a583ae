// Package events publishes record-change notifications to Kafka. Publishing
// is best-effort: the service logs failures and never fails a request over
// a missing broker.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types emitted by the record service.
const (
	TypeUserRegistered = "user.registered"
	TypeUserDeleted    = "user.deleted"
	TypeBotMoved       = "bot.moved"
)

// Event is a single record-change notification. Email identifies the
// affected record and doubles as the Kafka message key, so events for one
// user stay ordered within a partition.
type Event struct {
	Type    string    `json:"type"`
	Email   string    `json:"email"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// Publisher sends record-change events somewhere.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Writer is the subset of kafka.Writer used by the publisher.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a single Kafka topic.
type KafkaPublisher struct {
	writer Writer
	now    func() time.Time
}

// NewKafkaPublisher builds a publisher writing to topic on the given brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &KafkaPublisher{writer: w, now: time.Now}
}

// NewKafkaPublisherWithWriter injects a custom writer, used by tests.
func NewKafkaPublisherWithWriter(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w, now: time.Now}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = p.now().UTC()
	}
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Email),
		Value: value,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop discards all events. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
