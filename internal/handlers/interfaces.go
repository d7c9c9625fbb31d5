package handlers

import (
	"context"

	"github.com/imagefeed/backend/internal/auth"
	"github.com/imagefeed/backend/internal/models"
)

// UserStore captures the persistence operations required by the account handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	Update(ctx context.Context, user models.User) error
}

// TokenService issues and validates login, reset and verification tokens.
type TokenService interface {
	IssueAccess(userID string) (models.AccessToken, error)
	VerifyAccess(token string) (string, error)
	IssueReset(user models.User) (string, error)
	VerifyReset(token string) (auth.Claims, error)
	IssueVerify(user models.User) (string, error)
	VerifyVerify(token string) (auth.Claims, error)
}

// PostStore captures persistence for uploaded posts.
type PostStore interface {
	Create(ctx context.Context, post models.Post) error
	FindByID(ctx context.Context, id string) (models.Post, error)
	Delete(ctx context.Context, id string) error
}

// FeedAssembler builds the feed as seen by a requester.
type FeedAssembler interface {
	Assemble(ctx context.Context, requesterID string) ([]models.FeedEntry, error)
}

var _ TokenService = (*auth.Tokens)(nil)
