// Package service implements the consent and disclosure engine: recording,
// updating and revoking per-client consents, filtering disclosed attributes,
// and maintaining the per-consent access audit trail.
//
// A consent moves Absent -> Active on the first grant, stays Active through
// in-place updates, and leaves the aggregate entirely on revocation. Removing
// individual attributes keeps the consent Active even when its shared list
// becomes empty.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	consentmetrics "idvault/internal/consent/metrics"
	"idvault/internal/identity/models"
	userstore "idvault/internal/identity/store/user"
	id "idvault/pkg/domain"
	dErrors "idvault/pkg/domain-errors"
	"idvault/pkg/platform/audit"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

const tracerName = "idvault/internal/consent"

// AuditPublisher fans domain events out to the audit pipeline. The
// authoritative disclosure record stays the consent's own accessedAt trail;
// these events are operational fan-out.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          userstore.Store
	locks          *userstore.Keyed
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *consentmetrics.Metrics
	tracer         trace.Tracer
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

func WithMetrics(m *consentmetrics.Metrics) Option {
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

func New(store userstore.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tracer: otel.Tracer(tracerName),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordConsent grants or updates the consent for newConsent.ClientID.
//
// An existing consent for the client is updated in place: contextId and
// shared attributes are replaced and lastUpdatedAt is bumped, while id,
// createdAt and the accessedAt trail stay untouched. Token validity is
// replaced only when the incoming value is non-empty; an empty validity
// keeps the stored one. A second grant for the same client therefore never
// creates a second record.
//
// A new consent gets a fresh id, createdAt = lastUpdatedAt = now, and
// ONE_HOUR validity unless the caller supplied one.
func (s *Service) RecordConsent(ctx context.Context, userID id.UserID, newConsent models.Consent) (*models.Consent, error) {
	ctx, span := s.tracer.Start(ctx, "consent.Record",
		trace.WithAttributes(attribute.String("client_id", newConsent.ClientID)))
	defer span.End()

	if newConsent.TokenValidity != "" && !newConsent.TokenValidity.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid token validity %q", newConsent.TokenValidity)
	}

	unlock := s.lockUser(userID)
	defer unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	shared := newConsent.SharedAttributes
	if shared == nil {
		shared = []id.AttributeID{}
	}

	if existing := user.ConsentByClientID(newConsent.ClientID); existing != nil {
		existing.ContextID = newConsent.ContextID
		existing.SharedAttributes = shared
		if newConsent.TokenValidity != "" {
			existing.TokenValidity = newConsent.TokenValidity
		}
		existing.LastUpdatedAt = now

		if err := s.persist(ctx, user); err != nil {
			return nil, err
		}

		s.logAudit(ctx, audit.EventConsentUpdated, audit.Event{
			UserID:   userID,
			Subject:  existing.ID.String(),
			ClientID: existing.ClientID,
			Decision: "updated",
		})
		if s.metrics != nil {
			s.metrics.ConsentsUpdated.Inc()
		}
		granted := *existing
		return &granted, nil
	}

	newConsent.ID = id.NewConsentID()
	newConsent.SharedAttributes = shared
	if newConsent.TokenValidity == "" {
		newConsent.TokenValidity = id.ValidityOneHour
	}
	newConsent.CreatedAt = now
	newConsent.LastUpdatedAt = now
	newConsent.AccessedAt = nil
	user.Consents = append(user.Consents, newConsent)

	if err := s.persist(ctx, user); err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventConsentGranted, audit.Event{
		UserID:   userID,
		Subject:  newConsent.ID.String(),
		ClientID: newConsent.ClientID,
		Decision: "granted",
	})
	if s.metrics != nil {
		s.metrics.ConsentsGranted.Inc()
	}
	return &newConsent, nil
}

// RevokeConsent removes the consent by its internal id. Revocation is
// terminal: the record leaves the aggregate. Returns false without persisting
// when no consent matches.
func (s *Service) RevokeConsent(ctx context.Context, userID id.UserID, consentID id.ConsentID) (bool, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return false, err
	}

	idx := -1
	for i := range user.Consents {
		if user.Consents[i].ID == consentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	clientID := user.Consents[idx].ClientID
	user.Consents = append(user.Consents[:idx], user.Consents[idx+1:]...)

	if err := s.persist(ctx, user); err != nil {
		return false, err
	}

	s.logAudit(ctx, audit.EventConsentRevoked, audit.Event{
		UserID:   userID,
		Subject:  consentID.String(),
		ClientID: clientID,
		Decision: "revoked",
	})
	if s.metrics != nil {
		s.metrics.ConsentsRevoked.Inc()
	}
	return true, nil
}

// RemoveConsentedAttribute drops a single attribute id from a consent's
// shared list. Persists only when the attribute was actually present, so a
// miss never causes a spurious aggregate write. The consent stays Active even
// when its shared list becomes empty.
func (s *Service) RemoveConsentedAttribute(ctx context.Context, userID id.UserID, consentID id.ConsentID, attributeID id.AttributeID) (bool, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return false, err
	}

	consent := user.ConsentByID(consentID)
	if consent == nil {
		return false, nil
	}

	idx := -1
	for i, aid := range consent.SharedAttributes {
		if aid == attributeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	consent.SharedAttributes = append(consent.SharedAttributes[:idx], consent.SharedAttributes[idx+1:]...)
	consent.LastUpdatedAt = s.clock()

	if err := s.persist(ctx, user); err != nil {
		return false, err
	}

	s.logAudit(ctx, audit.EventConsentAttributeRemoved, audit.Event{
		UserID:   userID,
		Subject:  consentID.String(),
		ClientID: consent.ClientID,
		Reason:   attributeID.String(),
	})
	return true, nil
}

// FindConsentByID looks a consent up by client id.
//
// The name is historical: the key is the external client identifier, not the
// internal consent id. The mismatch is preserved on purpose - callers and
// stored data rely on clientId-keyed lookup semantics.
func (s *Service) FindConsentByID(ctx context.Context, userID id.UserID, clientID string) (*models.Consent, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	consent := user.ConsentByClientID(clientID)
	if consent == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no consent for client")
	}
	found := *consent
	return &found, nil
}

// GetConsentedAttributes resolves the consent for clientID and returns
// exactly those attributes the user owns whose id appears in the consent's
// shared list - the selective disclosure filter. Attribute order follows the
// user's attribute list.
//
// Returns CodeNotFound when the user or the consent is absent. An empty slice
// means "consent exists, nothing disclosable"; callers must test for NotFound
// rather than treating empty as "no consent".
func (s *Service) GetConsentedAttributes(ctx context.Context, userID id.UserID, clientID string) ([]models.IdentityAttribute, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "consent.Disclose",
		trace.WithAttributes(attribute.String("client_id", clientID)))
	defer span.End()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	consent := user.ConsentByClientID(clientID)
	if consent == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no consent for client")
	}

	shared := make(map[id.AttributeID]struct{}, len(consent.SharedAttributes))
	for _, aid := range consent.SharedAttributes {
		shared[aid] = struct{}{}
	}

	disclosed := make([]models.IdentityAttribute, 0, len(shared))
	for _, attr := range user.Attributes {
		if _, ok := shared[attr.ID]; ok {
			disclosed = append(disclosed, attr)
		}
	}

	span.SetAttributes(attribute.Int("disclosed_count", len(disclosed)))
	if s.metrics != nil {
		s.metrics.ObserveDisclosure(start)
	}
	return disclosed, nil
}

// AuditAccess appends the current timestamp to the consent's accessedAt trail.
// Invoked by the relying-party-facing layer after every successful attribute
// handoff, never by the user directly. A missing consent is a silent no-op:
// no error, no persist.
func (s *Service) AuditAccess(ctx context.Context, userID id.UserID, consentID id.ConsentID) error {
	unlock := s.lockUser(userID)
	defer unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	consent := user.ConsentByID(consentID)
	if consent == nil {
		return nil
	}

	consent.AccessedAt = append(consent.AccessedAt, s.clock())

	if err := s.persist(ctx, user); err != nil {
		return err
	}

	s.logAudit(ctx, audit.EventConsentAccessed, audit.Event{
		UserID:   userID,
		Subject:  consentID.String(),
		ClientID: consent.ClientID,
	})
	if s.metrics != nil {
		s.metrics.AccessesAudited.Inc()
	}
	return nil
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
