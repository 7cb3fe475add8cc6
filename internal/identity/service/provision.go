package service

import (
	"context"

	"idvault/internal/identity/models"
	id "idvault/pkg/domain"
	dErrors "idvault/pkg/domain-errors"
	"idvault/pkg/platform/audit"
)

// ProvisionDefaults seeds a freshly registered user with the stock "Personal"
// and "Professional" contexts and, when the user record carries an email, a
// visible "Email" attribute scoped to the personal context.
//
// The user must already have an id: provisioning an unsaved user is a
// precondition violation and writes nothing.
func (s *Service) ProvisionDefaults(ctx context.Context, user *models.User) error {
	if user == nil || user.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot provision defaults for a user without an id")
	}

	unlock := s.lockUser(user.ID)
	defer unlock()

	personal := models.Context{
		ID:          id.NewContextID(),
		Name:        "Personal",
		Description: "Personal life, family and friends",
	}
	professional := models.Context{
		ID:          id.NewContextID(),
		Name:        "Professional",
		Description: "Work and professional relationships",
	}
	user.Contexts = append(user.Contexts, personal, professional)

	if user.Email != "" && !user.AttributeNameTaken("Email", "") {
		user.Attributes = append(user.Attributes, models.IdentityAttribute{
			ID:         id.NewAttributeID(),
			UserID:     user.ID,
			Name:       "Email",
			Value:      user.Email,
			Visible:    true,
			ContextIDs: []id.ContextID{personal.ID},
		})
	}

	if err := s.persist(ctx, user); err != nil {
		return err
	}

	s.logAudit(ctx, audit.EventDefaultsProvisioned, audit.Event{
		UserID: user.ID,
	})
	return nil
}
