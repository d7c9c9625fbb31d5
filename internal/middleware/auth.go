package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/imagefeed/backend/internal/auth"
	"github.com/imagefeed/backend/internal/logging"
	"github.com/imagefeed/backend/internal/models"
	"github.com/imagefeed/backend/internal/repositories"
)

type userKey struct{}

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	VerifyAccess(token string) (string, error)
}

// UserLookup loads the account behind a verified token.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// WithUser stores the authenticated user on ctx.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user stored by RequireUser.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey{}).(models.User)
	return user, ok
}

// RequireUser rejects requests without a valid bearer token for an active user
// and makes the user available through UserFromContext.
func RequireUser(tokens TokenVerifier, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := logging.FromContext(ctx)

			if tokens == nil || users == nil {
				logger.Error("authentication dependencies unavailable", "hasTokens", tokens != nil, "hasUsers", users != nil)
				writeDetail(w, http.StatusInternalServerError, "authentication services unavailable")
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}

			userID, err := tokens.VerifyAccess(token)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrTokenExpired) {
					logger.Error("verify access token", "error", err)
				} else {
					logger.Warn("rejected access token", "error", err)
				}
				unauthorized(w)
				return
			}

			user, err := users.FindByID(ctx, userID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					logger.Warn("access token for unknown user", "userId", userID)
					unauthorized(w)
					return
				}
				logger.Error("load authenticated user", "userId", userID, "error", err)
				writeDetail(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if !user.IsActive {
				logger.Warn("access token for inactive user", "userId", userID)
				unauthorized(w)
				return
			}

			ctx = logging.WithUserID(WithUser(ctx, user), user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, "Unauthorized")
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
