package kafka

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"

	"pos-backoffice/internal/eventing"
)

// Publisher relays event envelopes to a Kafka topic.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher constructs a Kafka publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Relay writes the envelope to Kafka keyed by order id so all events for
// an order land on one partition.
func (p *Publisher) Relay(ctx context.Context, env eventing.Envelope) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka publisher: nil writer")
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.OrderID),
		Value: data,
	})
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
