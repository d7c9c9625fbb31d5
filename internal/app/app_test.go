package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunRejectsUnknownCommands(t *testing.T) {
	if err := Run(context.Background(), nil); err == nil {
		t.Fatal("expected error without a command")
	}
	if err := Run(context.Background(), []string{"launch"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestShouldRetryMigration(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization", &pgconn.PgError{Code: "40001"}, true},
		{"wrappedDeadlock", fmt.Errorf("goose: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"deadline", context.DeadlineExceeded, true},
		{"syntax", &pgconn.PgError{Code: "42601"}, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := shouldRetryMigration(tc.err); got != tc.want {
				t.Fatalf("shouldRetryMigration(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestWithMigrationRetry(t *testing.T) {
	attempts := 0
	err := withMigrationRetry(context.Background(), discardLogger(), "up", func(context.Context) error {
		attempts++
		if attempts < 2 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	if err != nil || attempts != 2 {
		t.Fatalf("expected success on second attempt, got err=%v attempts=%d", err, attempts)
	}

	attempts = 0
	syntax := &pgconn.PgError{Code: "42601"}
	err = withMigrationRetry(context.Background(), discardLogger(), "up", func(context.Context) error {
		attempts++
		return syntax
	})
	if !errors.Is(err, syntax) || attempts != 1 {
		t.Fatalf("expected immediate failure, got err=%v attempts=%d", err, attempts)
	}

	attempts = 0
	err = withMigrationRetry(context.Background(), discardLogger(), "up", func(context.Context) error {
		attempts++
		return &pgconn.PgError{Code: "55P03"}
	})
	if err == nil || attempts != migrationMaxRetries {
		t.Fatalf("expected retries to be exhausted, got err=%v attempts=%d", err, attempts)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = withMigrationRetry(ctx, discardLogger(), "up", func(context.Context) error {
		return &pgconn.PgError{Code: "40001"}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestResolveSeedPath(t *testing.T) {
	path, err := resolveSeedPath("/srv/seeds", "dev")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if path != filepath.Join("/srv/seeds", "dev_seed.sql") {
		t.Fatalf("unexpected path %s", path)
	}

	path, err = resolveSeedPath("/srv/seeds", "custom.sql")
	if err != nil || path != filepath.Join("/srv/seeds", "custom.sql") {
		t.Fatalf("unexpected path %s err=%v", path, err)
	}

	path, err = resolveSeedPath("seeds", "dev")
	if err != nil || !filepath.IsAbs(path) {
		t.Fatalf("expected absolute path, got %s err=%v", path, err)
	}

	for _, name := range []string{"", "../etc/passwd", `..\secret`} {
		if _, err := resolveSeedPath("/srv/seeds", name); err == nil {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
}
