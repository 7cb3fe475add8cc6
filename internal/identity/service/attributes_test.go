package service

import (
	"context"

	"go.uber.org/mock/gomock"

	"idvault/internal/identity/models"
	id "idvault/pkg/domain"
	dErrors "idvault/pkg/domain-errors"
)

func (s *ServiceSuite) TestCreateAttribute() {
	ctx := context.Background()

	s.Run("appends attribute with fresh id and owner", func() {
		user := s.seedUser()
		scope := user.Contexts[0].ID
		s.expectLoad(user)
		var saved *models.User
		s.expectSave(&saved)

		created, err := s.service.CreateAttribute(ctx, user.ID, models.IdentityAttribute{
			Name:       "Phone",
			Value:      "+31 6 12345678",
			Visible:    true,
			ContextIDs: []id.ContextID{scope, scope}, // duplicates collapse
		})

		s.Require().NoError(err)
		_, parseErr := id.ParseAttributeID(created.ID.String())
		s.NoError(parseErr)
		s.Equal(user.ID, created.UserID)
		s.Equal([]id.ContextID{scope}, created.ContextIDs)
		s.Len(saved.Attributes, 2)
	})

	s.Run("name conflict is case-insensitive and does not persist", func() {
		user := s.seedUser() // already owns "Email"
		s.expectLoad(user)
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Times(0)

		_, err := s.service.CreateAttribute(ctx, user.ID, models.IdentityAttribute{Name: "EMAIL"})

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestUpdateAttribute() {
	ctx := context.Background()

	s.Run("replaces value keeping id and owner", func() {
		user := s.seedUser()
		target := user.Attributes[0].ID
		s.expectLoad(user)
		var saved *models.User
		s.expectSave(&saved)

		updated, err := s.service.UpdateAttribute(ctx, user.ID, target, models.IdentityAttribute{
			Name:  "Email",
			Value: "new@example.com",
		})

		s.Require().NoError(err)
		s.Equal(target, updated.ID)
		s.Equal(user.ID, updated.UserID)
		s.Equal("new@example.com", saved.Attributes[0].Value)
	})

	s.Run("renaming to own name in different casing is allowed", func() {
		user := s.seedUser()
		target := user.Attributes[0].ID
		s.expectLoad(user)
		var saved *models.User
		s.expectSave(&saved)

		updated, err := s.service.UpdateAttribute(ctx, user.ID, target, models.IdentityAttribute{
			Name:  "EMAIL",
			Value: user.Attributes[0].Value,
		})

		s.Require().NoError(err)
		s.Equal("EMAIL", updated.Name)
		s.NotNil(saved)
	})

	s.Run("renaming onto another attribute's name is rejected", func() {
		user := s.seedUser()
		phone := models.IdentityAttribute{ID: id.NewAttributeID(), UserID: user.ID, Name: "Phone"}
		user.Attributes = append(user.Attributes, phone)
		s.expectLoad(user)
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Times(0)

		_, err := s.service.UpdateAttribute(ctx, user.ID, phone.ID, models.IdentityAttribute{Name: "email"})

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown attribute id returns not found", func() {
		user := s.seedUser()
		s.expectLoad(user)

		_, err := s.service.UpdateAttribute(ctx, user.ID, id.NewAttributeID(), models.IdentityAttribute{Name: "X"})

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestDeleteAttribute() {
	ctx := context.Background()

	s.Run("removes the attribute", func() {
		user := s.seedUser()
		target := user.Attributes[0].ID
		s.expectLoad(user)
		var saved *models.User
		s.expectSave(&saved)

		deleted, err := s.service.DeleteAttribute(ctx, user.ID, target)

		s.Require().NoError(err)
		s.True(deleted)
		s.Empty(saved.Attributes)
	})

	s.Run("missing attribute is a no-op that does not persist", func() {
		user := s.seedUser()
		s.expectLoad(user)
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Times(0)

		deleted, err := s.service.DeleteAttribute(ctx, user.ID, id.NewAttributeID())

		s.Require().NoError(err)
		s.False(deleted)
	})
}
