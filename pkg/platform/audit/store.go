package audit

import (
	"context"

	id "idvault/pkg/domain"
)

// Store is an append-only sink for audit events. Implementations include the
// in-memory store (tests), the Postgres outbox, and the Kafka sink.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
