package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerStorePassesThrough(t *testing.T) {
	calls := 0
	base := StoreFunc(func(_ context.Context, upload Upload) (Asset, error) {
		calls++
		return Asset{URL: "https://cdn.example.com/" + upload.Key, FileID: upload.Key}, nil
	})

	store := NewBreakerStore(base, BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute}, nil)

	asset, err := store.Upload(context.Background(), Upload{Key: "a/cat.png"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a/cat.png", asset.URL)
	assert.Equal(t, 1, calls)
}

func TestBreakerStoreOpensAfterConsecutiveFailures(t *testing.T) {
	boom := errors.New("upstream 500")
	calls := 0
	base := StoreFunc(func(context.Context, Upload) (Asset, error) {
		calls++
		return Asset{}, boom
	})

	store := NewBreakerStore(base, BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		_, err := store.Upload(context.Background(), Upload{Key: "k"})
		require.ErrorIs(t, err, boom)
	}
	assert.Equal(t, gobreaker.StateOpen, store.State())

	_, err := store.Upload(context.Background(), Upload{Key: "k"})
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 2, calls, "open breaker must not call the store")
}

func TestBreakerStoreIgnoresCancellation(t *testing.T) {
	base := StoreFunc(func(ctx context.Context, _ Upload) (Asset, error) {
		return Asset{}, ctx.Err()
	})
	store := NewBreakerStore(base, BreakerConfig{MaxFailures: 1, OpenTimeout: time.Minute}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Upload(ctx, Upload{Key: "k"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, gobreaker.StateClosed, store.State())
}

func TestBreakerStoreNilBase(t *testing.T) {
	var store *BreakerStore
	_, err := store.Upload(context.Background(), Upload{})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
