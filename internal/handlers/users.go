package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/imagefeed/backend/internal/auth"
	"github.com/imagefeed/backend/internal/logging"
	"github.com/imagefeed/backend/internal/middleware"
	"github.com/imagefeed/backend/internal/repositories"
)

const detailUpdateEmailExists = "UPDATE_USER_EMAIL_ALREADY_EXISTS"

// UserHandler serves the authenticated user's own account.
type UserHandler struct {
	Users   UserStore
	NowFunc func() time.Time
}

type updateMeRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Me handles GET and PATCH /users/me.
func (h UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.show(w, r)
	case http.MethodPatch:
		h.update(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h UserHandler) show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, detailUnauthorized)
		return
	}

	respondJSON(ctx, w, http.StatusOK, user)
}

// update changes the caller's email and/or password. A new email clears the
// verified flag; account flags are never taken from the body.
func (h UserHandler) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, detailUnauthorized)
		return
	}

	if h.Users == nil {
		logger.Error("user store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, detailAuthServiceUnavailable)
		return
	}

	var req updateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid user update payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, detailInvalidBody)
		return
	}

	if req.Email != nil {
		email, valid := normalizeEmail(*req.Email)
		if !valid {
			logger.Warn("user update invalid email", "email", *req.Email)
			respondError(ctx, w, http.StatusBadRequest, detailInvalidEmail)
			return
		}
		if email != user.Email {
			if _, err := h.Users.FindByEmail(ctx, email); err == nil {
				logger.Warn("user update email taken", "email", email)
				respondError(ctx, w, http.StatusBadRequest, detailUpdateEmailExists)
				return
			} else if !errors.Is(err, repositories.ErrNotFound) {
				logger.Error("user update lookup failed", "error", err)
				respondError(ctx, w, http.StatusInternalServerError, detailInternal)
				return
			}
			user.Email = email
			user.IsVerified = false
		}
	}

	if req.Password != nil {
		if err := auth.ValidatePassword(*req.Password, user.Email); err != nil {
			logger.Warn("user update password rejected", "reason", err.Error())
			respondError(ctx, w, http.StatusBadRequest, err.Error())
			return
		}
		hashed, err := auth.HashPassword(*req.Password)
		if err != nil {
			logger.Error("user update failed to hash password", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, detailInternal)
			return
		}
		user.Password = hashed
	}

	user.UpdatedAt = h.now()
	if err := h.Users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondError(ctx, w, http.StatusBadRequest, detailUpdateEmailExists)
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusUnauthorized, detailUnauthorized)
		default:
			logger.Error("failed to update user", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, detailInternal)
		}
		return
	}

	logger.Info("user updated", "emailChanged", req.Email != nil, "passwordChanged", req.Password != nil)
	respondJSON(ctx, w, http.StatusOK, user)
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
