package service

import (
	"context"

	"idvault/internal/identity/models"
	id "idvault/pkg/domain"
	dErrors "idvault/pkg/domain-errors"
)

func (s *ServiceSuite) TestProvisionDefaults() {
	ctx := context.Background()

	s.Run("seeds the stock contexts and an email attribute", func() {
		user := &models.User{ID: id.UserID("user-1"), Username: "jdoe", Email: "jdoe@example.com"}
		var saved *models.User
		s.expectSave(&saved)

		err := s.service.ProvisionDefaults(ctx, user)

		s.Require().NoError(err)
		s.Require().Len(saved.Contexts, 2)
		s.Equal("Personal", saved.Contexts[0].Name)
		s.Equal("Professional", saved.Contexts[1].Name)

		s.Require().Len(saved.Attributes, 1)
		email := saved.Attributes[0]
		s.Equal("Email", email.Name)
		s.Equal("jdoe@example.com", email.Value)
		s.True(email.Visible)
		s.Equal(user.ID, email.UserID)
		// scoped to the personal context only
		s.Equal([]id.ContextID{saved.Contexts[0].ID}, email.ContextIDs)
	})

	s.Run("no email on the record means no seeded attribute", func() {
		user := &models.User{ID: id.UserID("user-2"), Username: "noreply"}
		var saved *models.User
		s.expectSave(&saved)

		err := s.service.ProvisionDefaults(ctx, user)

		s.Require().NoError(err)
		s.Len(saved.Contexts, 2)
		s.Empty(saved.Attributes)
	})

	s.Run("existing Email attribute is left alone", func() {
		user := &models.User{
			ID:    id.UserID("user-3"),
			Email: "new@example.com",
			Attributes: []models.IdentityAttribute{
				{ID: id.NewAttributeID(), UserID: id.UserID("user-3"), Name: "email", Value: "old@example.com"},
			},
		}
		var saved *models.User
		s.expectSave(&saved)

		err := s.service.ProvisionDefaults(ctx, user)

		s.Require().NoError(err)
		s.Require().Len(saved.Attributes, 1)
		s.Equal("old@example.com", saved.Attributes[0].Value)
	})

	s.Run("user without an id is rejected before any write", func() {
		err := s.service.ProvisionDefaults(ctx, &models.User{Username: "unsaved"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		err = s.service.ProvisionDefaults(ctx, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}
