// Package feed builds the per-requester view of every post.
package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/imagefeed/backend/internal/logging"
	"github.com/imagefeed/backend/internal/models"
)

// UnknownEmail is shown for posts whose owner can no longer be resolved.
const UnknownEmail = "Unknown"

// PostLister lists every post, newest first.
type PostLister interface {
	ListAll(ctx context.Context) ([]models.Post, error)
}

// OwnerDirectory resolves user ids to email addresses in one call.
type OwnerDirectory interface {
	EmailsByID(ctx context.Context, ids []string) (map[string]string, error)
}

// Assembler joins posts with their owners' emails for a requester.
type Assembler struct {
	Posts  PostLister
	Owners OwnerDirectory
}

// NewAssembler constructs an Assembler.
func NewAssembler(posts PostLister, owners OwnerDirectory) *Assembler {
	return &Assembler{Posts: posts, Owners: owners}
}

// Assemble returns every post in repository order, flagged with whether
// requesterID owns it. The result is never nil.
func (a *Assembler) Assemble(ctx context.Context, requesterID string) ([]models.FeedEntry, error) {
	if a == nil || a.Posts == nil || a.Owners == nil {
		return nil, errors.New("feed assembler is not configured")
	}

	ctx, span := logging.StartSpan(ctx, "feed.assemble")
	defer span.End()

	posts, err := a.Posts.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	entries := make([]models.FeedEntry, 0, len(posts))
	if len(posts) == 0 {
		return entries, nil
	}

	emails, err := a.Owners.EmailsByID(ctx, ownerIDs(posts))
	if err != nil {
		return nil, fmt.Errorf("resolve post owners: %w", err)
	}

	for _, post := range posts {
		email, ok := emails[post.UserID]
		if !ok {
			logging.FromContext(ctx).Warn("post owner not found", "postId", post.ID, "ownerId", post.UserID)
			email = UnknownEmail
		}
		entries = append(entries, models.FeedEntry{
			Post:    post,
			IsOwner: post.UserID == requesterID,
			Email:   email,
		})
	}

	logging.FromContext(ctx).Debug("feed assembled", "entries", len(entries))
	return entries, nil
}

func ownerIDs(posts []models.Post) []string {
	seen := make(map[string]struct{}, len(posts))
	ids := make([]string, 0, len(posts))
	for _, post := range posts {
		if _, ok := seen[post.UserID]; ok {
			continue
		}
		seen[post.UserID] = struct{}{}
		ids = append(ids, post.UserID)
	}
	return ids
}
