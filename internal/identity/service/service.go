// Package service implements the context and attribute manager plus the bulk
// attribute importer. Every mutating operation is read-modify-write on the
// full user aggregate: load, mutate in memory, persist the whole aggregate.
//
// Without a configured per-user lock two concurrent callers for the same user
// race at the save boundary and the later persist wins. That matches the
// legacy behavior; wire WithUserLock to serialize writers instead.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	identitymetrics "idvault/internal/identity/metrics"
	"idvault/internal/identity/models"
	userstore "idvault/internal/identity/store/user"
	id "idvault/pkg/domain"
	dErrors "idvault/pkg/domain-errors"
	"idvault/pkg/platform/audit"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// AuditPublisher fans domain events out to the audit pipeline. Emission is
// best-effort for operations events; failures are logged, never surfaced.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates context and attribute management over the user
// aggregate.
type Service struct {
	store          userstore.Store
	locks          *userstore.Keyed
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *identitymetrics.Metrics
	clock          func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *identitymetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithUserLock serializes mutating operations per user id, closing the
// lost-update window at the aggregate-save boundary.
func WithUserLock(locks *userstore.Keyed) Option {
	return func(s *Service) {
		s.locks = locks
	}
}

// WithClock sets the time source for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New constructs a Service.
func New(store userstore.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lockUser acquires the per-user mutex when one is configured. The returned
// release function is a no-op otherwise.
func (s *Service) lockUser(userID id.UserID) func() {
	if s.locks == nil {
		return func() {}
	}
	return s.locks.Lock(userID)
}

// loadUser resolves the aggregate or reports CodeNotFound.
func (s *Service) loadUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

func (s *Service) persist(ctx context.Context, user *models.User) error {
	if err := s.store.Save(ctx, user); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist user")
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, action audit.AuditEvent, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.Action = string(action)
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.Warn("audit emit failed", "action", event.Action, "error", err)
	}
}
