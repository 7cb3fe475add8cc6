// Package consumer materializes streamed audit events into a queryable store.
package consumer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"idvault/internal/platform/kafka/consumer"
	audit "idvault/pkg/platform/audit"
)

// MaterializedStore accepts idempotent inserts keyed by event id. Satisfied by
// the Postgres audit store.
type MaterializedStore interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// Materializer replays the audit topic into the materialized store. Kafka
// redelivers on rebalance, so inserts must be idempotent; the store's
// ON CONFLICT DO NOTHING covers that.
type Materializer struct {
	store MaterializedStore
}

func NewMaterializer(store MaterializedStore) *Materializer {
	return &Materializer{store: store}
}

func (m *Materializer) Handle(ctx context.Context, msg *consumer.Message) error {
	rawID, event, err := audit.DecodePayload(msg.Value)
	if err != nil {
		// Poison messages are skipped; redelivery would fail identically.
		return fmt.Errorf("skip undecodable audit message on %s: %w", msg.Topic, err)
	}
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("skip audit message with bad id %q: %w", rawID, err)
	}
	return m.store.AppendWithID(ctx, eventID, event)
}
