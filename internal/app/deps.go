package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/imagefeed/backend/internal/auth"
	"github.com/imagefeed/backend/internal/config"
	"github.com/imagefeed/backend/internal/db"
	"github.com/imagefeed/backend/internal/events"
	"github.com/imagefeed/backend/internal/feed"
	"github.com/imagefeed/backend/internal/handlers"
	"github.com/imagefeed/backend/internal/media"
	"github.com/imagefeed/backend/internal/middleware"
	"github.com/imagefeed/backend/internal/repositories"
	"github.com/imagefeed/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains background workers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	objectStore, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure object storage: %w", err)
	}

	mediaStore := media.NewBreakerStore(objectStore, media.BreakerConfig{
		Name:        "media-store",
		MaxFailures: cfg.MediaBreaker.MaxFailures,
		OpenTimeout: cfg.MediaBreaker.OpenTimeout,
	}, logger)

	tokens := auth.NewTokens(auth.TokenConfig{
		Secret:    cfg.Secret,
		AccessTTL: cfg.AccessTokenTTL,
		ResetTTL:  cfg.ResetTokenTTL,
		VerifyTTL: cfg.VerifyTokenTTL,
	})

	users := repositories.NewPostgresUserRepository(pool)
	posts := repositories.NewPostgresPostRepository(pool)

	dispatcher := events.NewDispatcher(events.DispatcherConfig{
		QueueSize: cfg.Events.QueueSize,
		Workers:   cfg.Events.Workers,
	}, logger, events.LogListener(logger))

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, cfg.RateLimit.TTL)

	deps := handlers.Dependencies{
		Users:          users,
		Tokens:         tokens,
		Posts:          posts,
		Feed:           feed.NewAssembler(posts, users),
		Media:          mediaStore,
		Limiter:        limiter,
		TrustProxy:     cfg.RateLimit.TrustProxy,
		Events:         dispatcher,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	return deps, dispatcher.Shutdown, nil
}
