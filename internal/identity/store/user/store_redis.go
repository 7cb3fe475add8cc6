package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"idvault/internal/identity/models"
	id "idvault/pkg/domain"
)

const (
	userKeyPrefix     = "idvault:user:"
	usernameKeyPrefix = "idvault:username:"
)

// RedisStore persists each aggregate as a JSON document plus a username index
// key. Both keys are written in one pipeline so the index cannot drift from
// the document under a single writer.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func userKey(userID id.UserID) string    { return userKeyPrefix + userID.String() }
func usernameKey(username string) string { return usernameKeyPrefix + username }

func (s *RedisStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	raw, err := s.client.Get(ctx, userKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", userID, err)
	}
	return &u, nil
}

func (s *RedisStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	uid, err := s.client.Get(ctx, usernameKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("resolve username: %w", err)
	}
	return s.FindByID(ctx, id.UserID(uid))
}

func (s *RedisStore) Save(ctx context.Context, user *models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user %s: %w", user.ID, err)
	}

	// A renamed user must not leave a stale username index behind.
	prev, err := s.FindByID(ctx, user.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	pipe := s.client.TxPipeline()
	if prev != nil && prev.Username != user.Username {
		pipe.Del(ctx, usernameKey(prev.Username))
	}
	pipe.Set(ctx, userKey(user.ID), raw, 0)
	pipe.Set(ctx, usernameKey(user.Username), user.ID.String(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save user %s: %w", user.ID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID id.UserID) error {
	u, err := s.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, userKey(userID))
	pipe.Del(ctx, usernameKey(u.Username))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete user %s: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) ExistsByID(ctx context.Context, userID id.UserID) (bool, error) {
	n, err := s.client.Exists(ctx, userKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("check user %s: %w", userID, err)
	}
	return n > 0, nil
}
