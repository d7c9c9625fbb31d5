package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/imagefeed/backend/internal/logging"
	"github.com/imagefeed/backend/internal/media"
	"github.com/imagefeed/backend/internal/middleware"
	"github.com/imagefeed/backend/internal/models"
	"github.com/imagefeed/backend/internal/repositories"
)

// DefaultMaxUploadBytes caps a multipart upload when no limit is configured.
const DefaultMaxUploadBytes int64 = 50 << 20

const multipartMemory = 8 << 20

const (
	detailPostNotFound     = "Post not found"
	detailNotPostOwner     = "Not authorized to delete this post"
	detailFileRequired     = "file is required"
	detailFileTooLarge     = "file too large"
	detailUploadFailed     = "Upload failed"
	detailPostServiceError = "post services unavailable"
)

// PostHandler serves uploads, the feed and post deletion.
type PostHandler struct {
	Posts          PostStore
	Media          media.Store
	Assembler      FeedAssembler
	MaxUploadBytes int64
	NowFunc        func() time.Time
}

// Upload handles POST /upload. The file extension is checked before any bytes
// reach the media store.
func (h PostHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, span := logging.StartSpan(r.Context(), "posts.upload")
	defer span.End()
	logger := logging.FromContext(ctx)

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, detailUnauthorized)
		return
	}

	if h.Posts == nil || h.Media == nil {
		logger.Error("upload dependencies unavailable", "hasPosts", h.Posts != nil, "hasMedia", h.Media != nil)
		respondError(ctx, w, http.StatusInternalServerError, detailPostServiceError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("upload exceeds size limit", "limit", tooLarge.Limit)
			respondError(ctx, w, http.StatusRequestEntityTooLarge, detailFileTooLarge)
			return
		}
		logger.Warn("invalid upload form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, detailInvalidBody)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		logger.Warn("upload missing file", "error", err)
		respondError(ctx, w, http.StatusBadRequest, detailFileRequired)
		return
	}
	defer file.Close()

	fileName := path.Base(strings.ReplaceAll(strings.TrimSpace(header.Filename), "\\", "/"))
	fileType, err := media.Classify(fileName)
	if err != nil {
		logger.Warn("upload rejected", "fileName", fileName, "error", err)
		respondError(ctx, w, http.StatusBadRequest, fmt.Sprintf("Unsupported file type: %s", fileName))
		return
	}

	postID := uuid.NewString()
	asset, err := h.Media.Upload(ctx, media.Upload{
		Key:         fmt.Sprintf("%s/%s_%s", user.ID, postID, fileName),
		FileName:    fileName,
		ContentType: media.ContentType(fileName, header.Header.Get("Content-Type")),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		logger.Error("media store upload failed", "error", err, "fileName", fileName)
		respondError(ctx, w, http.StatusBadGateway, detailUploadFailed)
		return
	}

	post := models.Post{
		ID:        postID,
		UserID:    user.ID,
		Caption:   optionalString(r.FormValue("caption")),
		URL:       asset.URL,
		FileID:    optionalString(asset.FileID),
		FileType:  fileType,
		FileName:  fileName,
		CreatedAt: h.now(),
	}

	if err := h.Posts.Create(ctx, post); err != nil {
		// The stored object is left in place; the media store has no delete contract.
		logger.Error("failed to persist post", "error", err, "postId", post.ID, "fileId", asset.FileID)
		respondError(ctx, w, http.StatusInternalServerError, detailInternal)
		return
	}

	logger.Info("post uploaded", "postId", post.ID, "fileType", string(post.FileType))
	respondJSON(ctx, w, http.StatusOK, post)
}

// Feed handles GET /feed.
func (h PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, detailUnauthorized)
		return
	}

	if h.Assembler == nil {
		logger.Error("feed assembler unavailable")
		respondError(ctx, w, http.StatusInternalServerError, detailPostServiceError)
		return
	}

	entries, err := h.Assembler.Assemble(ctx, user.ID)
	if err != nil {
		logger.Error("failed to assemble feed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, detailInternal)
		return
	}

	respondJSON(ctx, w, http.StatusOK, feedResponse{Posts: entries})
}

// Delete handles DELETE /post/{id}. Only the owner may delete a post; unknown
// and malformed ids both report not found.
func (h PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, span := logging.StartSpan(r.Context(), "posts.delete")
	defer span.End()
	logger := logging.FromContext(ctx)

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, detailUnauthorized)
		return
	}

	if h.Posts == nil {
		logger.Error("post store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, detailPostServiceError)
		return
	}

	postID := strings.TrimSpace(r.PathValue("id"))
	if postID == "" {
		respondError(ctx, w, http.StatusNotFound, detailPostNotFound)
		return
	}

	post, err := h.Posts.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, detailPostNotFound)
			return
		}
		logger.Error("failed to load post", "error", err, "postId", postID)
		respondError(ctx, w, http.StatusInternalServerError, detailInternal)
		return
	}

	if post.UserID != user.ID {
		logger.Warn("delete by non-owner", "postId", post.ID, "ownerId", post.UserID)
		respondError(ctx, w, http.StatusForbidden, detailNotPostOwner)
		return
	}

	if err := h.Posts.Delete(ctx, post.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, detailPostNotFound)
			return
		}
		logger.Error("failed to delete post", "error", err, "postId", post.ID)
		respondError(ctx, w, http.StatusInternalServerError, detailInternal)
		return
	}

	logger.Info("post deleted", "postId", post.ID)
	respondJSON(ctx, w, http.StatusOK, deleteResponse{Success: true, Message: "Post deleted successfully"})
}

type feedResponse struct {
	Posts []models.FeedEntry `json:"posts"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h PostHandler) maxUploadBytes() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}

func (h PostHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
