// Package service implements the connection manager: linking and unlinking
// external-provider accounts on the user aggregate.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"idvault/internal/identity/models"
	userstore "idvault/internal/identity/store/user"
	id "idvault/pkg/domain"
	dErrors "idvault/pkg/domain-errors"
	"idvault/pkg/platform/audit"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// AuditPublisher fans domain events out to the audit pipeline.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          userstore.Store
	locks          *userstore.Keyed
	logger         *slog.Logger
	auditPublisher AuditPublisher
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

// WithUserLock serializes mutating operations per user id.
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

// SaveConnection links an external account. Connection identity is the
// (providerId, providerUserId) pair: a match updates only the access token in
// place, keeping id and connectedAt; otherwise a new connection is appended.
// The same provider may appear in several connections, one per external
// account.
func (s *Service) SaveConnection(ctx context.Context, userID id.UserID, conn models.Connection) (*models.Connection, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if existing := user.ConnectionByProviderAccount(conn.ProviderID, conn.ProviderUserID); existing != nil {
		existing.ProviderAccessToken = conn.ProviderAccessToken
		conn = *existing
	} else {
		conn.ID = id.NewConnectionID()
		conn.ConnectedAt = s.clock()
		user.Connections = append(user.Connections, conn)
	}

	if err := s.persist(ctx, user); err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventConnectionLinked, audit.Event{
		UserID:     userID,
		Subject:    conn.ID.String(),
		ProviderID: conn.ProviderID,
	})
	return &conn, nil
}

// DeleteConnection unlinks one specific account by its connection id, not by
// provider. Returns false without persisting when no connection matches.
func (s *Service) DeleteConnection(ctx context.Context, userID id.UserID, connectionID id.ConnectionID) (bool, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return false, err
	}

	idx := -1
	for i := range user.Connections {
		if user.Connections[i].ID == connectionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	provider := user.Connections[idx].ProviderID
	user.Connections = append(user.Connections[:idx], user.Connections[idx+1:]...)

	if err := s.persist(ctx, user); err != nil {
		return false, err
	}

	s.logAudit(ctx, audit.EventConnectionUnlinked, audit.Event{
		UserID:     userID,
		Subject:    connectionID.String(),
		ProviderID: provider,
	})
	return true, nil
}

func (s *Service) lockUser(userID id.UserID) func() {
	if s.locks == nil {
		return func() {}
	}
	return s.locks.Lock(userID)
}

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
