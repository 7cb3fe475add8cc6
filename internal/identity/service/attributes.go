package service

import (
	"context"

	"idvault/internal/identity/models"
	id "idvault/pkg/domain"
	dErrors "idvault/pkg/domain-errors"
	"idvault/pkg/platform/audit"
)

// CreateAttribute appends a new attribute. Rejects with CodeConflict when
// another attribute already uses the name, compared case-insensitively.
func (s *Service) CreateAttribute(ctx context.Context, userID id.UserID, attr models.IdentityAttribute) (*models.IdentityAttribute, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.AttributeNameTaken(attr.Name, "") {
		return nil, nameConflict(attr.Name)
	}

	attr.ID = id.NewAttributeID()
	attr.UserID = userID
	attr.ContextIDs = models.NormalizeContextIDs(attr.ContextIDs)
	user.Attributes = append(user.Attributes, attr)

	if err := s.persist(ctx, user); err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventAttributeCreated, audit.Event{
		UserID:  userID,
		Subject: attr.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.AttributesCreated.Inc()
	}
	return &attr, nil
}

// UpdateAttribute replaces the attribute with the matching id in place.
// A rename that collides case-insensitively with a *different* attribute's
// name is rejected with CodeConflict; renaming to the attribute's own name
// (in any casing) is allowed.
func (s *Service) UpdateAttribute(ctx context.Context, userID id.UserID, attributeID id.AttributeID, updated models.IdentityAttribute) (*models.IdentityAttribute, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing := user.AttributeByID(attributeID)
	if existing == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "attribute not found")
	}

	if user.AttributeNameTaken(updated.Name, attributeID) {
		return nil, nameConflict(updated.Name)
	}

	updated.ID = attributeID
	updated.UserID = userID
	updated.ContextIDs = models.NormalizeContextIDs(updated.ContextIDs)
	*existing = updated

	if err := s.persist(ctx, user); err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventAttributeUpdated, audit.Event{
		UserID:  userID,
		Subject: attributeID.String(),
	})
	return &updated, nil
}

// DeleteAttribute removes the attribute by id. No cascading effects: consents
// that still list the id simply disclose nothing for it. Returns false
// without persisting when the attribute did not exist.
func (s *Service) DeleteAttribute(ctx context.Context, userID id.UserID, attributeID id.AttributeID) (bool, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return false, err
	}

	idx := -1
	for i := range user.Attributes {
		if user.Attributes[i].ID == attributeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	user.Attributes = append(user.Attributes[:idx], user.Attributes[idx+1:]...)

	if err := s.persist(ctx, user); err != nil {
		return false, err
	}

	s.logAudit(ctx, audit.EventAttributeDeleted, audit.Event{
		UserID:  userID,
		Subject: attributeID.String(),
	})
	if s.metrics != nil {
		s.metrics.AttributesDeleted.Inc()
	}
	return true, nil
}
