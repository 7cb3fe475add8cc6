package service

import (
	"context"
	"strings"

	"idvault/internal/identity/models"
	id "idvault/pkg/domain"
	dErrors "idvault/pkg/domain-errors"
	"idvault/pkg/platform/audit"
)

// CreateContext appends a new context to the user's list. The incoming id is
// ignored; a fresh one is always generated.
func (s *Service) CreateContext(ctx context.Context, userID id.UserID, newCtx models.Context) (*models.Context, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	newCtx.ID = id.NewContextID()
	user.Contexts = append(user.Contexts, newCtx)

	if err := s.persist(ctx, user); err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventContextCreated, audit.Event{
		UserID:  userID,
		Subject: newCtx.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.ContextsCreated.Inc()
	}
	return &newCtx, nil
}

// UpdateContext replaces the context with the matching id in place, keeping
// the id. Returns CodeNotFound without persisting when no context matches.
func (s *Service) UpdateContext(ctx context.Context, userID id.UserID, contextID id.ContextID, updated models.Context) (*models.Context, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing := user.ContextByID(contextID)
	if existing == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "context not found")
	}

	updated.ID = contextID
	*existing = updated

	if err := s.persist(ctx, user); err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventContextUpdated, audit.Event{
		UserID:  userID,
		Subject: contextID.String(),
	})
	return &updated, nil
}

// DeleteContext removes the context and strips its id from the contextIds of
// every attribute that referenced it. No attribute is ever deleted by this
// cascade. Returns false without persisting when the context did not exist.
func (s *Service) DeleteContext(ctx context.Context, userID id.UserID, contextID id.ContextID) (bool, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return false, err
	}

	idx := -1
	for i := range user.Contexts {
		if user.Contexts[i].ID == contextID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	user.Contexts = append(user.Contexts[:idx], user.Contexts[idx+1:]...)

	for i := range user.Attributes {
		attr := &user.Attributes[i]
		kept := attr.ContextIDs[:0]
		for _, cid := range attr.ContextIDs {
			if cid != contextID {
				kept = append(kept, cid)
			}
		}
		attr.ContextIDs = kept
	}

	if err := s.persist(ctx, user); err != nil {
		return false, err
	}

	s.logAudit(ctx, audit.EventContextDeleted, audit.Event{
		UserID:  userID,
		Subject: contextID.String(),
	})
	if s.metrics != nil {
		s.metrics.ContextsDeleted.Inc()
	}
	return true, nil
}

// nameConflict builds the rejection for a case-insensitive attribute name
// collision, carrying the offending name.
func nameConflict(name string) error {
	return dErrors.Newf(dErrors.CodeConflict, "attribute name %q already in use", strings.TrimSpace(name))
}
