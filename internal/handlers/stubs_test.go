package handlers

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/imagefeed/backend/internal/events"
	"github.com/imagefeed/backend/internal/media"
	"github.com/imagefeed/backend/internal/models"
	"github.com/imagefeed/backend/internal/repositories"
)

type inMemoryUserStore struct {
	mu      sync.Mutex
	users   map[string]models.User
	findErr error
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{users: make(map[string]models.User)}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return models.User{}, s.findErr
	}
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return models.User{}, s.findErr
	}
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) EmailsByID(_ context.Context, ids []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	emails := make(map[string]string, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			emails[id] = user.Email
		}
	}
	return emails, nil
}

func (s *inMemoryUserStore) Update(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	for id, existing := range s.users {
		if id != user.ID && existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

type inMemoryPostStore struct {
	mu        sync.Mutex
	posts     map[string]models.Post
	seq       map[string]int
	next      int
	createErr error
}

func newInMemoryPostStore() *inMemoryPostStore {
	return &inMemoryPostStore{posts: make(map[string]models.Post), seq: make(map[string]int)}
}

func (s *inMemoryPostStore) Create(_ context.Context, post models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.posts[post.ID]; exists {
		return repositories.ErrConflict
	}
	s.next++
	s.posts[post.ID] = post
	s.seq[post.ID] = s.next
	return nil
}

func (s *inMemoryPostStore) ListAll(context.Context) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := make([]models.Post, 0, len(s.posts))
	for _, post := range s.posts {
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return s.seq[posts[i].ID] > s.seq[posts[j].ID]
	})
	return posts, nil
}

func (s *inMemoryPostStore) FindByID(_ context.Context, id string) (models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[id]
	if !ok {
		return models.Post{}, repositories.ErrNotFound
	}
	return post, nil
}

func (s *inMemoryPostStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.posts, id)
	delete(s.seq, id)
	return nil
}

type mediaStoreStub struct {
	mu      sync.Mutex
	uploads []media.Upload
	bodies  []string
	err     error
}

func (s *mediaStoreStub) Upload(_ context.Context, upload media.Upload) (media.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, _ := io.ReadAll(upload.Body)
	upload.Body = nil
	s.uploads = append(s.uploads, upload)
	s.bodies = append(s.bodies, string(data))
	if s.err != nil {
		return media.Asset{}, s.err
	}
	return media.Asset{URL: "https://cdn.example.com/" + upload.Key, FileID: upload.Key}, nil
}

func (s *mediaStoreStub) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (e *recordingEmitter) Emit(_ context.Context, event events.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *recordingEmitter) last(kind events.Type) (events.Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.events) - 1; i >= 0; i-- {
		if e.events[i].Type == kind {
			return e.events[i], true
		}
	}
	return events.Event{}, false
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

// keyRecordingLimiter allows everything and remembers the keys it was asked about.
type keyRecordingLimiter struct {
	mu   sync.Mutex
	keys []string
}

func (l *keyRecordingLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return true
}

func (l *keyRecordingLimiter) seen() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.keys...)
}

// steppingClock returns strictly increasing timestamps.
type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newSteppingClock() *steppingClock {
	return &steppingClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

var errStoreDown = errors.New("store down")
