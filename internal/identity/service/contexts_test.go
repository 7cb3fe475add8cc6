package service

import (
	"context"

	"go.uber.org/mock/gomock"

	"idvault/internal/identity/models"
	id "idvault/pkg/domain"
	dErrors "idvault/pkg/domain-errors"
)

func (s *ServiceSuite) TestCreateContext() {
	ctx := context.Background()

	s.Run("appends context with a freshly generated id", func() {
		user := s.seedUser()
		s.expectLoad(user)
		var saved *models.User
		s.expectSave(&saved)

		created, err := s.service.CreateContext(ctx, user.ID, models.Context{
			ID:          id.ContextID("ctx-deadbeef"), // caller-supplied ids are ignored
			Name:        "Work",
			Description: "Employer-facing profile",
		})

		s.Require().NoError(err)
		s.NotEqual(id.ContextID("ctx-deadbeef"), created.ID)
		_, parseErr := id.ParseContextID(created.ID.String())
		s.NoError(parseErr)
		s.Equal("Work", created.Name)

		s.Require().NotNil(saved)
		s.Len(saved.Contexts, 2)
		s.Equal(created.ID, saved.Contexts[1].ID)
	})
}

func (s *ServiceSuite) TestUpdateContext() {
	ctx := context.Background()

	s.Run("replaces name and description keeping the id", func() {
		user := s.seedUser()
		target := user.Contexts[0].ID
		s.expectLoad(user)
		var saved *models.User
		s.expectSave(&saved)

		updated, err := s.service.UpdateContext(ctx, user.ID, target, models.Context{
			Name:        "Private",
			Description: "Renamed",
		})

		s.Require().NoError(err)
		s.Equal(target, updated.ID)
		s.Equal("Private", saved.Contexts[0].Name)
		s.Equal("Renamed", saved.Contexts[0].Description)
	})

	s.Run("unknown context id returns not found without persisting", func() {
		user := s.seedUser()
		s.expectLoad(user)

		_, err := s.service.UpdateContext(ctx, user.ID, id.NewContextID(), models.Context{Name: "X"})

		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestDeleteContext() {
	ctx := context.Background()

	s.Run("removes context and strips it from attribute scopes", func() {
		user := s.seedUser()
		target := user.Contexts[0].ID
		other := id.NewContextID()
		user.Contexts = append(user.Contexts, models.Context{ID: other, Name: "Work"})
		user.Attributes[0].ContextIDs = []id.ContextID{target, other}
		s.expectLoad(user)
		var saved *models.User
		s.expectSave(&saved)

		deleted, err := s.service.DeleteContext(ctx, user.ID, target)

		s.Require().NoError(err)
		s.True(deleted)
		s.Len(saved.Contexts, 1)
		s.Equal(other, saved.Contexts[0].ID)
		// cascade narrows the scope, never deletes the attribute
		s.Len(saved.Attributes, 1)
		s.Equal([]id.ContextID{other}, saved.Attributes[0].ContextIDs)
	})

	s.Run("attribute scoped only to the deleted context keeps an empty scope", func() {
		user := s.seedUser()
		target := user.Contexts[0].ID
		s.expectLoad(user)
		var saved *models.User
		s.expectSave(&saved)

		deleted, err := s.service.DeleteContext(ctx, user.ID, target)

		s.Require().NoError(err)
		s.True(deleted)
		s.Len(saved.Attributes, 1)
		s.Empty(saved.Attributes[0].ContextIDs)
	})

	s.Run("missing context is a no-op that does not persist", func() {
		user := s.seedUser()
		s.expectLoad(user)
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Times(0)

		deleted, err := s.service.DeleteContext(ctx, user.ID, id.NewContextID())

		s.Require().NoError(err)
		s.False(deleted)
	})
}
