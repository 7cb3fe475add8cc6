// Package publisher emits audit events to a Store, either synchronously or
// through a buffered background goroutine. Async mode never blocks the domain
// operation: when the buffer is full the event is dropped and counted against
// the caller's logs rather than its latency.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "idvault/pkg/domain"
	audit "idvault/pkg/platform/audit"
)

type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox  chan audit.Event
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with the given buffer
// size. Zero or negative sizes keep synchronous behavior.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan audit.Event, size)
		}
	}
}

// WithLogger sets a logger for drop/persist failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.done = make(chan struct{})
		go p.drain()
	}
	return p
}

// Emit records an event. Zero timestamps are stamped with the current time.
// In async mode a full buffer drops the event rather than blocking, and an
// emit after Close is dropped the same way.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped(event, "audit publisher closed, dropping event")
		return nil
	}

	select {
	case p.inbox <- event:
	default:
		p.dropped(event, "audit buffer full, dropping event")
	}
	return nil
}

func (p *Publisher) dropped(event audit.Event, msg string) {
	if p.logger != nil {
		p.logger.Warn(msg,
			"action", event.Action,
			"user_id", event.UserID.String(),
		)
	}
}

// List returns the events recorded for a user.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close drains any buffered events and stops the background goroutine.
// Safe to call more than once.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.inbox != nil {
		close(p.inbox)
		<-p.done
	}
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("audit event persist failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
}
