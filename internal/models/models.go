package models

import "time"

// User represents an account within the imagefeed platform.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Password    string    `json:"-"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	IsVerified  bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// FileType classifies uploaded media.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
)

// Post is an uploaded media item owned by a single user.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Caption   *string   `json:"caption"`
	URL       string    `json:"url"`
	FileID    *string   `json:"file_id"`
	FileType  FileType  `json:"file_type"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedEntry is a post annotated relative to the user viewing the feed.
type FeedEntry struct {
	Post
	IsOwner bool   `json:"is_owner"`
	Email   string `json:"email"`
}

// AccessToken is the bearer credential issued on login.
type AccessToken struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"-"`
}
