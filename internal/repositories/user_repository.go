package repositories

import (
	"context"

	"github.com/imagefeed/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	EmailsByID(ctx context.Context, ids []string) (map[string]string, error)
	Update(ctx context.Context, user models.User) error
}
