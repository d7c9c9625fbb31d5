package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imagefeed/backend/internal/models"
)

type postsStub struct {
	posts []models.Post
	err   error
}

func (s postsStub) ListAll(context.Context) ([]models.Post, error) {
	return s.posts, s.err
}

type ownersStub struct {
	emails map[string]string
	err    error
	calls  int
	lastID []string
}

func (s *ownersStub) EmailsByID(_ context.Context, ids []string) (map[string]string, error) {
	s.calls++
	s.lastID = ids
	return s.emails, s.err
}

func samplePosts() []models.Post {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []models.Post{
		{ID: "p3", UserID: "bob", URL: "https://cdn/p3.mp4", FileType: models.FileTypeVideo, CreatedAt: base.Add(2 * time.Minute)},
		{ID: "p2", UserID: "alice", URL: "https://cdn/p2.png", FileType: models.FileTypeImage, CreatedAt: base.Add(time.Minute)},
		{ID: "p1", UserID: "alice", URL: "https://cdn/p1.jpg", FileType: models.FileTypeImage, CreatedAt: base},
	}
}

func TestAssembleMarksOwnershipPerRequester(t *testing.T) {
	owners := &ownersStub{emails: map[string]string{"alice": "a@x.com", "bob": "b@x.com"}}
	assembler := NewAssembler(postsStub{posts: samplePosts()}, owners)

	forAlice, err := assembler.Assemble(context.Background(), "alice")
	require.NoError(t, err)
	forBob, err := assembler.Assemble(context.Background(), "bob")
	require.NoError(t, err)

	require.Len(t, forAlice, 3)
	assert.Equal(t, []string{"p3", "p2", "p1"}, []string{forAlice[0].ID, forAlice[1].ID, forAlice[2].ID})
	assert.Equal(t, []bool{false, true, true}, []bool{forAlice[0].IsOwner, forAlice[1].IsOwner, forAlice[2].IsOwner})
	assert.Equal(t, []bool{true, false, false}, []bool{forBob[0].IsOwner, forBob[1].IsOwner, forBob[2].IsOwner})
	assert.Equal(t, "b@x.com", forAlice[0].Email)
	assert.Equal(t, "a@x.com", forBob[2].Email)

	assert.Equal(t, 2, owners.calls, "one batched lookup per assembly")
	assert.ElementsMatch(t, []string{"bob", "alice"}, owners.lastID)
}

func TestAssembleUnknownOwner(t *testing.T) {
	owners := &ownersStub{emails: map[string]string{"alice": "a@x.com"}}
	entries, err := NewAssembler(postsStub{posts: samplePosts()}, owners).Assemble(context.Background(), "carol")
	require.NoError(t, err)

	assert.Equal(t, UnknownEmail, entries[0].Email)
	for _, entry := range entries {
		assert.False(t, entry.IsOwner)
	}
}

func TestAssembleEmptyFeed(t *testing.T) {
	owners := &ownersStub{}
	entries, err := NewAssembler(postsStub{}, owners).Assemble(context.Background(), "alice")
	require.NoError(t, err)

	assert.NotNil(t, entries)
	assert.Empty(t, entries)
	assert.Zero(t, owners.calls)
}

func TestAssembleErrors(t *testing.T) {
	boom := errors.New("db down")

	_, err := NewAssembler(postsStub{err: boom}, &ownersStub{}).Assemble(context.Background(), "alice")
	assert.ErrorIs(t, err, boom)

	_, err = NewAssembler(postsStub{posts: samplePosts()}, &ownersStub{err: boom}).Assemble(context.Background(), "alice")
	assert.ErrorIs(t, err, boom)

	var unconfigured *Assembler
	_, err = unconfigured.Assemble(context.Background(), "alice")
	assert.Error(t, err)
}
