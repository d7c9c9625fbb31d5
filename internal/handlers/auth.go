package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/imagefeed/backend/internal/auth"
	"github.com/imagefeed/backend/internal/events"
	"github.com/imagefeed/backend/internal/logging"
	"github.com/imagefeed/backend/internal/models"
	"github.com/imagefeed/backend/internal/repositories"
)

const (
	detailLoginBadCredentials    = "LOGIN_BAD_CREDENTIALS"
	detailUserAlreadyExists      = "REGISTER_USER_ALREADY_EXISTS"
	detailResetBadToken          = "RESET_PASSWORD_BAD_TOKEN"
	detailVerifyBadToken         = "VERIFY_USER_BAD_TOKEN"
	detailVerifyAlreadyVerified  = "VERIFY_USER_ALREADY_VERIFIED"
	detailAuthServiceUnavailable = "authentication services unavailable"

	statusForgotPassword = "If an account exists for that email, password reset instructions have been sent."
	statusVerifyRequest  = "If an unverified account exists for that email, a verification link has been sent."
	statusPasswordReset  = "Password has been reset."
)

// AuthHandler implements account registration, login and recovery endpoints.
type AuthHandler struct {
	Users      UserStore
	Tokens     TokenService
	Limiter    RateLimiter
	TrustProxy bool
	Events     events.Emitter
	NowFunc    func() time.Time
}

// Register handles POST /auth/register requests.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !allowRequest(h.Limiter, h.TrustProxy, w, r, "register") {
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !h.ready(w, r) {
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid register payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, detailInvalidBody)
		return
	}

	email, ok := normalizeEmail(req.Email)
	if !ok {
		logger.Warn("register invalid email", "email", req.Email)
		respondError(ctx, w, http.StatusBadRequest, detailInvalidEmail)
		return
	}

	if err := auth.ValidatePassword(req.Password, email); err != nil {
		logger.Warn("register password rejected", "email", email, "reason", err.Error())
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.Users.FindByEmail(ctx, email); err == nil {
		logger.Warn("register existing account", "email", email)
		respondError(ctx, w, http.StatusBadRequest, detailUserAlreadyExists)
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		logger.Error("register user lookup failed", "error", err, "email", email)
		respondError(ctx, w, http.StatusInternalServerError, detailInternal)
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("register failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, detailInternal)
		return
	}

	now := h.now()
	user := models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  hashed,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			logger.Warn("register conflict", "email", email)
			respondError(ctx, w, http.StatusBadRequest, detailUserAlreadyExists)
			return
		}
		logger.Error("register failed to create user", "error", err, "email", email)
		respondError(ctx, w, http.StatusInternalServerError, detailInternal)
		return
	}

	logger.Info("user registered", "userId", user.ID)
	h.emit(r, events.Event{Type: events.UserRegistered, UserID: user.ID, Email: user.Email})

	respondJSON(ctx, w, http.StatusCreated, user)
}

// Login handles POST /auth/jwt/login requests. Credentials arrive form-encoded
// as username and password.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !allowRequest(h.Limiter, h.TrustProxy, w, r, "login") {
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !h.ready(w, r) {
		return
	}

	if err := r.ParseForm(); err != nil {
		logger.Warn("invalid login form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, detailInvalidBody)
		return
	}

	email := strings.ToLower(strings.TrimSpace(r.PostForm.Get("username")))
	password := r.PostForm.Get("password")
	if email == "" || password == "" {
		logger.Warn("login missing credentials", "email", email)
		respondError(ctx, w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.Users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			logger.Error("login user lookup failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, detailInternal)
			return
		}
		logger.Warn("login unknown account", "email", email)
		respondError(ctx, w, http.StatusUnauthorized, detailLoginBadCredentials)
		return
	}

	if !auth.CheckPassword(user.Password, password) || !user.IsActive {
		logger.Warn("login rejected", "userId", user.ID, "active", user.IsActive)
		respondError(ctx, w, http.StatusUnauthorized, detailLoginBadCredentials)
		return
	}

	token, err := h.Tokens.IssueAccess(user.ID)
	if err != nil {
		logger.Error("failed to issue access token", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, detailInternal)
		return
	}

	respondJSON(ctx, w, http.StatusOK, token)
}

// ForgotPassword handles POST /auth/forgot-password requests. The response
// never reveals whether the account exists.
func (h AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !allowRequest(h.Limiter, h.TrustProxy, w, r, "forgot-password") {
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !h.ready(w, r) {
		return
	}

	user, found, ok := h.lookupByEmailBody(w, r)
	if !ok {
		return
	}

	if found && user.IsActive {
		token, err := h.Tokens.IssueReset(user)
		if err != nil {
			logger.Error("failed to issue reset token", "error", err, "userId", user.ID)
			respondError(ctx, w, http.StatusInternalServerError, detailInternal)
			return
		}
		h.emit(r, events.Event{Type: events.UserForgotPassword, UserID: user.ID, Email: user.Email, Token: token})
	}

	respondJSON(ctx, w, http.StatusAccepted, statusResponse{Status: statusForgotPassword})
}

// ResetPassword handles POST /auth/reset-password requests.
func (h AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !h.ready(w, r) {
		return
	}

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid reset payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, detailInvalidBody)
		return
	}

	claims, err := h.Tokens.VerifyReset(req.Token)
	if err != nil {
		logger.Warn("reset token rejected", "error", err)
		respondError(ctx, w, http.StatusBadRequest, detailResetBadToken)
		return
	}

	user, ok := h.tokenSubject(w, r, claims.Subject, detailResetBadToken)
	if !ok {
		return
	}
	if !user.IsActive || claims.PasswordFingerprint != auth.PasswordFingerprint(user.Password) {
		logger.Warn("reset token no longer valid", "userId", user.ID)
		respondError(ctx, w, http.StatusBadRequest, detailResetBadToken)
		return
	}

	if err := auth.ValidatePassword(req.Password, user.Email); err != nil {
		logger.Warn("reset password rejected", "userId", user.ID, "reason", err.Error())
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("reset failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, detailInternal)
		return
	}

	user.Password = hashed
	user.UpdatedAt = h.now()
	if !h.save(w, r, user) {
		return
	}

	logger.Info("password reset", "userId", user.ID)
	h.emit(r, events.Event{Type: events.UserPasswordReset, UserID: user.ID, Email: user.Email})

	respondJSON(ctx, w, http.StatusOK, statusResponse{Status: statusPasswordReset})
}

// RequestVerifyToken handles POST /auth/request-verify-token requests.
func (h AuthHandler) RequestVerifyToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !allowRequest(h.Limiter, h.TrustProxy, w, r, "request-verify-token") {
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !h.ready(w, r) {
		return
	}

	user, found, ok := h.lookupByEmailBody(w, r)
	if !ok {
		return
	}

	if found && user.IsActive && !user.IsVerified {
		token, err := h.Tokens.IssueVerify(user)
		if err != nil {
			logger.Error("failed to issue verify token", "error", err, "userId", user.ID)
			respondError(ctx, w, http.StatusInternalServerError, detailInternal)
			return
		}
		h.emit(r, events.Event{Type: events.UserVerifyRequested, UserID: user.ID, Email: user.Email, Token: token})
	}

	respondJSON(ctx, w, http.StatusAccepted, statusResponse{Status: statusVerifyRequest})
}

// Verify handles POST /auth/verify requests.
func (h AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !h.ready(w, r) {
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid verify payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, detailInvalidBody)
		return
	}

	claims, err := h.Tokens.VerifyVerify(req.Token)
	if err != nil {
		logger.Warn("verify token rejected", "error", err)
		respondError(ctx, w, http.StatusBadRequest, detailVerifyBadToken)
		return
	}

	user, ok := h.tokenSubject(w, r, claims.Subject, detailVerifyBadToken)
	if !ok {
		return
	}
	if !strings.EqualFold(claims.Email, user.Email) {
		logger.Warn("verify token email mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusBadRequest, detailVerifyBadToken)
		return
	}
	if user.IsVerified {
		respondError(ctx, w, http.StatusBadRequest, detailVerifyAlreadyVerified)
		return
	}

	user.IsVerified = true
	user.UpdatedAt = h.now()
	if !h.save(w, r, user) {
		return
	}

	logger.Info("user verified", "userId", user.ID)
	h.emit(r, events.Event{Type: events.UserVerified, UserID: user.ID, Email: user.Email})

	respondJSON(ctx, w, http.StatusOK, user)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

func (h AuthHandler) ready(w http.ResponseWriter, r *http.Request) bool {
	if h.Users != nil && h.Tokens != nil {
		return true
	}
	ctx := r.Context()
	logging.FromContext(ctx).Error("authentication dependencies unavailable", "hasUsers", h.Users != nil, "hasTokens", h.Tokens != nil)
	respondError(ctx, w, http.StatusInternalServerError, detailAuthServiceUnavailable)
	return false
}

// lookupByEmailBody decodes {"email"} and loads the matching account. found
// is false for unknown emails; ok is false once a response has been written.
func (h AuthHandler) lookupByEmailBody(w http.ResponseWriter, r *http.Request) (user models.User, found, ok bool) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid email payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, detailInvalidBody)
		return models.User{}, false, false
	}

	email, valid := normalizeEmail(req.Email)
	if !valid {
		logger.Warn("invalid email address", "email", req.Email)
		respondError(ctx, w, http.StatusBadRequest, detailInvalidEmail)
		return models.User{}, false, false
	}

	user, err := h.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, false, true
		}
		logger.Error("user lookup failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, detailInternal)
		return models.User{}, false, false
	}

	return user, true, true
}

func (h AuthHandler) tokenSubject(w http.ResponseWriter, r *http.Request, userID, badTokenDetail string) (models.User, bool) {
	ctx := r.Context()
	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logging.FromContext(ctx).Warn("token subject not found", "userId", userID)
			respondError(ctx, w, http.StatusBadRequest, badTokenDetail)
			return models.User{}, false
		}
		logging.FromContext(ctx).Error("token subject lookup failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, detailInternal)
		return models.User{}, false
	}
	return user, true
}

func (h AuthHandler) save(w http.ResponseWriter, r *http.Request, user models.User) bool {
	ctx := r.Context()
	if err := h.Users.Update(ctx, user); err != nil {
		logging.FromContext(ctx).Error("failed to update user", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, detailInternal)
		return false
	}
	return true
}

func (h AuthHandler) emit(r *http.Request, event events.Event) {
	if h.Events == nil {
		return
	}
	h.Events.Emit(r.Context(), event)
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

// normalizeEmail lower-cases a bare address and rejects display-name forms.
func normalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}
