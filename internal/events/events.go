// Package events delivers best-effort notifications about account lifecycle
// changes. Listeners run after the triggering write has committed and can
// never fail or delay it.
package events

import (
	"context"
	"log/slog"
	"time"
)

// Type names a lifecycle event.
type Type string

const (
	UserRegistered      Type = "user.registered"
	UserForgotPassword  Type = "user.forgot_password"
	UserPasswordReset   Type = "user.password_reset"
	UserVerifyRequested Type = "user.verify_requested"
	UserVerified        Type = "user.verified"
)

// Event describes something that happened to a user account. Token is only
// set for events that hand a one-time token to the user.
type Event struct {
	Type       Type
	UserID     string
	Email      string
	Token      string
	RequestID  string
	OccurredAt time.Time
}

// Emitter publishes events without blocking the caller.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// Listener consumes a delivered event. Returned errors are logged and dropped.
type Listener func(ctx context.Context, event Event) error

// LogListener records every event on logger. Tokens are not logged.
func LogListener(logger *slog.Logger) Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, event Event) error {
		logger.InfoContext(ctx, "user lifecycle event",
			"event", string(event.Type),
			"userId", event.UserID,
			"requestId", event.RequestID,
			"hasToken", event.Token != "",
		)
		return nil
	}
}

// Discard is an Emitter that drops every event.
type Discard struct{}

// Emit implements Emitter.
func (Discard) Emit(context.Context, Event) {}
