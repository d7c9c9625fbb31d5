package repositories

import (
	"context"

	"github.com/imagefeed/backend/internal/models"
)

// PostRepository exposes data access for uploaded posts.
type PostRepository interface {
	Create(ctx context.Context, post models.Post) error
	ListAll(ctx context.Context) ([]models.Post, error)
	FindByID(ctx context.Context, id string) (models.Post, error)
	Delete(ctx context.Context, id string) error
}
