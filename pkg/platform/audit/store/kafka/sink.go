// Package kafka streams audit events to a topic. The sink is write-only;
// querying happens against the materialized store the consumer maintains.
package kafka

import (
	"context"

	"github.com/google/uuid"

	audit "idvault/pkg/platform/audit"
)

// DefaultTopic is where audit events are streamed unless configured otherwise.
const DefaultTopic = "idvault.audit.events"

// Producer is the produce surface the sink needs; satisfied by
// internal/platform/kafka.Producer.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

type Sink struct {
	producer Producer
	topic    string
}

func NewSink(producer Producer, topic string) *Sink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Sink{producer: producer, topic: topic}
}

// Append publishes the event keyed by user id so one user's trail stays
// ordered within a partition.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	raw, err := audit.EncodePayload(uuid.NewString(), event)
	if err != nil {
		return err
	}
	return s.producer.Produce(ctx, s.topic, []byte(event.UserID.String()), raw)
}
