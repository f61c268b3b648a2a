// Package membership publishes and consumes organization membership events over Kafka.
package membership

import (
	"context"
	"encoding/json"

	"github.com/ortelius/tenancy-backend/model"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer sends membership events to Kafka
type Producer struct {
	Writer MessageWriter
}

// NewProducer initializes a new Kafka writer for membership events
func NewProducer(brokers []string, topic string, transport *kafka.Transport) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	if transport != nil {
		w.Transport = transport
	}
	return &Producer{Writer: w}
}

// PublishMembershipEvent sends the event keyed by organization id, so every event of one
// organization lands on the same partition in order.
func (p *Producer) PublishMembershipEvent(ctx context.Context, event model.MembershipEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrganizationID),
		Value: payload,
	})
}

// Close cleans up the Kafka writer
func (p *Producer) Close() error {
	return p.Writer.Close()
}
