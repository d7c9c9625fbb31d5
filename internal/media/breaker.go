package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig controls when BreakerStore stops calling the wrapped store.
type BreakerConfig struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// BreakerStore guards a Store with a circuit breaker. It never retries; once
// the breaker opens, uploads fail fast with ErrStoreUnavailable until the
// open timeout elapses.
type BreakerStore struct {
	base    Store
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps base with a consecutive-failure circuit breaker.
func NewBreakerStore(base Store, cfg BreakerConfig, logger *slog.Logger) *BreakerStore {
	if cfg.Name == "" {
		cfg.Name = "media-store"
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	maxFailures := cfg.MaxFailures
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellations say nothing about the store's health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("media store breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &BreakerStore{base: base, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Upload forwards to the wrapped store unless the breaker is open.
func (s *BreakerStore) Upload(ctx context.Context, upload Upload) (Asset, error) {
	if s == nil || s.base == nil {
		return Asset{}, ErrStoreUnavailable
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.base.Upload(ctx, upload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Asset{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return Asset{}, err
	}

	return result.(Asset), nil
}

// State reports the breaker state, mainly for health reporting and tests.
func (s *BreakerStore) State() gobreaker.State {
	return s.breaker.State()
}
