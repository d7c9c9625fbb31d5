package handlers

import (
	"net/http"

	"github.com/imagefeed/backend/internal/events"
	"github.com/imagefeed/backend/internal/media"
	"github.com/imagefeed/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users          UserStore
	Tokens         TokenService
	Posts          PostStore
	Feed           FeedAssembler
	Media          media.Store
	Limiter        RateLimiter
	TrustProxy     bool
	Events         events.Emitter
	MaxUploadBytes int64
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	accounts := AuthHandler{
		Users:      deps.Users,
		Tokens:     deps.Tokens,
		Limiter:    deps.Limiter,
		TrustProxy: deps.TrustProxy,
		Events:     deps.Events,
	}
	users := UserHandler{Users: deps.Users}
	posts := PostHandler{Posts: deps.Posts, Media: deps.Media, Assembler: deps.Feed, MaxUploadBytes: deps.MaxUploadBytes}

	requireUser := middleware.RequireUser(deps.Tokens, deps.Users)
	protected := func(h http.HandlerFunc) http.Handler {
		return requireUser(h)
	}

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("/auth/register", accounts.Register)
	mux.HandleFunc("/auth/jwt/login", accounts.Login)
	mux.HandleFunc("/auth/forgot-password", accounts.ForgotPassword)
	mux.HandleFunc("/auth/reset-password", accounts.ResetPassword)
	mux.HandleFunc("/auth/request-verify-token", accounts.RequestVerifyToken)
	mux.HandleFunc("/auth/verify", accounts.Verify)

	mux.Handle("/users/me", protected(users.Me))
	mux.Handle("/upload", protected(posts.Upload))
	mux.Handle("/feed", protected(posts.Feed))
	mux.Handle("/post/{id}", protected(posts.Delete))
}
