//go:build integration

package kafka_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	platformkafka "idvault/internal/platform/kafka"
	kafkaconsumer "idvault/internal/platform/kafka/consumer"
	"idvault/internal/platform/logger"
	id "idvault/pkg/domain"
	audit "idvault/pkg/platform/audit"
	auditconsumer "idvault/pkg/platform/audit/consumer"
	auditkafka "idvault/pkg/platform/audit/store/kafka"
	"idvault/pkg/testutil/containers"
)

// collectingStore records materialized events and dedupes by event id, the
// same contract the Postgres audit store provides.
type collectingStore struct {
	mu     sync.Mutex
	seen   map[uuid.UUID]struct{}
	events []audit.Event
}

func newCollectingStore() *collectingStore {
	return &collectingStore{seen: make(map[uuid.UUID]struct{})}
}

func (c *collectingStore) AppendWithID(_ context.Context, eventID uuid.UUID, event audit.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.seen[eventID]; dup {
		return nil
	}
	c.seen[eventID] = struct{}{}
	c.events = append(c.events, event)
	return nil
}

func (c *collectingStore) snapshot() []audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]audit.Event(nil), c.events...)
}

func TestAuditKafkaRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	redpanda := containers.NewRedpandaContainer(t)
	topic := auditkafka.DefaultTopic

	require.NoError(t, platformkafka.EnsureTopic(ctx, redpanda.Brokers, topic, 1))

	producer, err := platformkafka.NewProducer(redpanda.Brokers)
	require.NoError(t, err)
	t.Cleanup(producer.Close)

	sink := auditkafka.NewSink(producer, topic)

	store := newCollectingStore()
	consumer, err := kafkaconsumer.New(redpanda.Brokers, "audit-test", []string{topic},
		auditconsumer.NewMaterializer(store), logger.New())
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	go func() {
		_ = consumer.Run(consumerCtx)
	}()

	userID := id.UserID("user-1")
	sent := []audit.Event{
		{
			Category:  audit.CategoryCompliance,
			Action:    string(audit.EventConsentGranted),
			UserID:    userID,
			Subject:   "cons-00000001",
			ClientID:  "acme",
			Decision:  "granted",
			Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			Category:  audit.CategoryCompliance,
			Action:    string(audit.EventConsentAccessed),
			UserID:    userID,
			Subject:   "cons-00000001",
			ClientID:  "acme",
			Timestamp: time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC),
		},
		{
			Category:   audit.CategoryOperations,
			Action:     string(audit.EventConnectionLinked),
			UserID:     userID,
			Subject:    "conn-00000001",
			ProviderID: "github",
			Timestamp:  time.Date(2025, 6, 1, 12, 10, 0, 0, time.UTC),
		},
	}
	for _, event := range sent {
		require.NoError(t, sink.Append(ctx, event))
	}

	require.Eventually(t, func() bool {
		return len(store.snapshot()) == len(sent)
	}, 60*time.Second, 250*time.Millisecond, "expected all audit events to materialize")

	got := store.snapshot()
	byAction := make(map[string]audit.Event, len(got))
	for _, event := range got {
		byAction[event.Action] = event
	}
	for _, want := range sent {
		materialized, ok := byAction[want.Action]
		require.True(t, ok, "missing event %s", want.Action)
		require.Equal(t, want.UserID, materialized.UserID)
		require.Equal(t, want.Subject, materialized.Subject)
		require.Equal(t, want.ClientID, materialized.ClientID)
		require.Equal(t, want.ProviderID, materialized.ProviderID)
		require.True(t, want.Timestamp.Equal(materialized.Timestamp))
		require.Equal(t, want.Category, materialized.Category)
	}
}
