package audit

import (
	"context"
	"log/slog"

	id "idvault/pkg/domain"
)

// Appender is the write-only subset of Store. Streaming sinks implement just
// this.
type Appender interface {
	Append(ctx context.Context, event Event) error
}

// Tee appends to a primary store and best-effort mirrors to additional sinks.
// Reads come from the primary. A sink failure is logged, never propagated: the
// primary record is the durable one.
type Tee struct {
	primary Store
	sinks   []Appender
	logger  *slog.Logger
}

func NewTee(primary Store, logger *slog.Logger, sinks ...Appender) *Tee {
	return &Tee{primary: primary, sinks: sinks, logger: logger}
}

func (t *Tee) Append(ctx context.Context, event Event) error {
	if err := t.primary.Append(ctx, event); err != nil {
		return err
	}
	for _, sink := range t.sinks {
		if err := sink.Append(ctx, event); err != nil && t.logger != nil {
			t.logger.Warn("audit sink append failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
	return nil
}

func (t *Tee) ListByUser(ctx context.Context, userID id.UserID) ([]Event, error) {
	return t.primary.ListByUser(ctx, userID)
}
