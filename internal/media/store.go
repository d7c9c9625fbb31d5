// Package media defines the contract imagefeed relies on to host uploaded
// files, along with the rules for which files are accepted.
package media

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrUnsupportedFile indicates the upload's extension is not allowed.
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrStoreUnavailable indicates the media store could not accept the upload.
	ErrStoreUnavailable = errors.New("media store unavailable")
)

// Upload describes a file to hand to the media store.
type Upload struct {
	Key         string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Asset is the media store's acknowledgement of a stored upload.
type Asset struct {
	URL    string
	FileID string
}

// Store accepts raw bytes and returns a durable URL. Implementations report
// every failure as a single error; no partial upload state is exposed.
type Store interface {
	Upload(ctx context.Context, upload Upload) (Asset, error)
}

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, upload Upload) (Asset, error)

// Upload calls f.
func (f StoreFunc) Upload(ctx context.Context, upload Upload) (Asset, error) {
	return f(ctx, upload)
}
