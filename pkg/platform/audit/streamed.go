package audit

import (
	"context"

	id "idvault/pkg/domain"
)

// Streamed routes writes to a stream sink and reads to the materialized store
// a consumer maintains from that same stream. Using it instead of a Tee keeps
// each event single-sourced: the materializer is the only writer of the
// queryable store, so replays cannot duplicate rows next to direct appends.
//
// Reads lag writes by the consumer's end-to-end latency.
type Streamed struct {
	sink   Appender
	reader Store
}

func NewStreamed(sink Appender, reader Store) *Streamed {
	return &Streamed{sink: sink, reader: reader}
}

func (s *Streamed) Append(ctx context.Context, event Event) error {
	return s.sink.Append(ctx, event)
}

func (s *Streamed) ListByUser(ctx context.Context, userID id.UserID) ([]Event, error) {
	return s.reader.ListByUser(ctx, userID)
}
