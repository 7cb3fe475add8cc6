//go:build integration

package user_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idvault/internal/identity/models"
	userstore "idvault/internal/identity/store/user"
	id "idvault/pkg/domain"
	"idvault/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *userstore.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = userstore.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) newUser(username string) *models.User {
	userID := id.UserID("user-" + username)
	ctxID := id.NewContextID()
	return &models.User{
		ID:       userID,
		Username: username,
		Email:    username + "@example.com",
		Contexts: []models.Context{
			{ID: ctxID, Name: "Personal", Description: "Personal life"},
		},
		Attributes: []models.IdentityAttribute{
			{
				ID:         id.NewAttributeID(),
				UserID:     userID,
				Name:       "Email",
				Value:      username + "@example.com",
				Visible:    true,
				ContextIDs: []id.ContextID{ctxID},
			},
		},
	}
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	user := s.newUser("jdoe")
	user.Consents = []models.Consent{
		{
			ID:               id.NewConsentID(),
			ClientID:         "acme",
			SharedAttributes: []id.AttributeID{user.Attributes[0].ID},
			TokenValidity:    id.ValidityOneDay,
			CreatedAt:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			LastUpdatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	s.Require().NoError(s.store.Save(ctx, user))

	byID, err := s.store.FindByID(ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(user.Username, byID.Username)
	s.Equal(user.Contexts, byID.Contexts)
	s.Equal(user.Attributes, byID.Attributes)
	s.Equal(user.Consents, byID.Consents)

	byName, err := s.store.FindByUsername(ctx, "jdoe")
	s.Require().NoError(err)
	s.Equal(user.ID, byName.ID)
}

func (s *RedisStoreSuite) TestFindMisses() {
	ctx := context.Background()

	_, err := s.store.FindByID(ctx, id.UserID("user-ghost"))
	s.True(errors.Is(err, userstore.ErrNotFound))

	_, err = s.store.FindByUsername(ctx, "ghost")
	s.True(errors.Is(err, userstore.ErrNotFound))
}

func (s *RedisStoreSuite) TestUsernameReindexOnRename() {
	ctx := context.Background()
	user := s.newUser("jdoe")
	s.Require().NoError(s.store.Save(ctx, user))

	user.Username = "johnd"
	s.Require().NoError(s.store.Save(ctx, user))

	byNew, err := s.store.FindByUsername(ctx, "johnd")
	s.Require().NoError(err)
	s.Equal(user.ID, byNew.ID)

	_, err = s.store.FindByUsername(ctx, "jdoe")
	s.True(errors.Is(err, userstore.ErrNotFound), "stale username index must be removed")
}

func (s *RedisStoreSuite) TestDelete() {
	ctx := context.Background()
	user := s.newUser("jdoe")
	s.Require().NoError(s.store.Save(ctx, user))

	s.Require().NoError(s.store.Delete(ctx, user.ID))

	_, err := s.store.FindByID(ctx, user.ID)
	s.True(errors.Is(err, userstore.ErrNotFound))
	_, err = s.store.FindByUsername(ctx, "jdoe")
	s.True(errors.Is(err, userstore.ErrNotFound))

	s.True(errors.Is(s.store.Delete(ctx, user.ID), userstore.ErrNotFound))
}

func (s *RedisStoreSuite) TestExistsByID() {
	ctx := context.Background()
	user := s.newUser("jdoe")
	s.Require().NoError(s.store.Save(ctx, user))

	exists, err := s.store.ExistsByID(ctx, user.ID)
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.store.ExistsByID(ctx, id.UserID("user-ghost"))
	s.Require().NoError(err)
	s.False(exists)
}
