// Package user persists the user aggregate. Every implementation loads and
// saves the aggregate as a whole; services follow load → mutate → save, and
// two concurrent writers for the same user can lose an update at the save
// boundary unless the caller serializes per user (see Keyed).
package user

import (
	"context"

	"idvault/internal/identity/models"
	id "idvault/pkg/domain"
	"idvault/pkg/platform/sentinel"
)

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks

// ErrNotFound keeps store-level 404s consistent across implementations.
var ErrNotFound = sentinel.ErrNotFound

// Store is the collaborator the domain services call back into. Save is an
// idempotent full-aggregate upsert.
type Store interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, userID id.UserID) error
	ExistsByID(ctx context.Context, userID id.UserID) (bool, error)
}
