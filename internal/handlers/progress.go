package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/akademi/lms-backend/internal/logging"
	"github.com/akademi/lms-backend/internal/models"
	"github.com/akademi/lms-backend/internal/repositories"
	"github.com/akademi/lms-backend/internal/tenant"
)

// ProgressHandler implements lesson progress tracking endpoints.
type ProgressHandler struct {
	Progress ProgressStore
	NowFunc  func() time.Time
}

// Update handles POST /api/v1/progress/update. The operation is an upsert:
// repeating a report leaves the stored row unchanged.
func (h ProgressHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Progress == nil {
		logger.Error("progress store unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "progress service unavailable"})
		return
	}

	userID := tenant.UserIDFromContext(ctx)
	if userID == "" {
		logger.Warn("progress update without user identity")
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "user identity is required"})
		return
	}

	var req progressUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid progress payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.LessonID = strings.TrimSpace(req.LessonID)
	if req.LessonID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "lessonId is required"})
		return
	}

	if req.ProgressPercentage < 0 || req.ProgressPercentage > 100 {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "progressPercentage must be between 0 and 100"})
		return
	}

	if req.LastPositionSeconds < 0 {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "lastPositionSeconds must not be negative"})
		return
	}

	progress := models.LessonProgress{
		UserID:              userID,
		LessonID:            req.LessonID,
		ProgressPercentage:  req.ProgressPercentage,
		LastPositionSeconds: req.LastPositionSeconds,
		IsCompleted:         req.ProgressPercentage >= models.CompletionThreshold,
		UpdatedAt:           h.now(),
	}

	stored, err := h.Progress.Upsert(ctx, progress)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "lesson not found"})
			return
		}
		logger.Error("upsert progress failed", "error", err, "lessonId", req.LessonID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to record progress"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, progressView{
		LessonID:            stored.LessonID,
		ProgressPercentage:  stored.ProgressPercentage,
		LastPositionSeconds: stored.LastPositionSeconds,
		IsCompleted:         stored.IsCompleted,
		UpdatedAt:           stored.UpdatedAt,
	})
}

type progressUpdateRequest struct {
	LessonID            string `json:"lessonId"`
	ProgressPercentage  int    `json:"progressPercentage"`
	LastPositionSeconds int    `json:"lastPositionSeconds"`
}

type progressView struct {
	LessonID            string    `json:"lessonId"`
	ProgressPercentage  int       `json:"progressPercentage"`
	LastPositionSeconds int       `json:"lastPositionSeconds"`
	IsCompleted         bool      `json:"isCompleted"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func (h ProgressHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
