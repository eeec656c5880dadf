package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/akademi/lms-backend/internal/content"
	"github.com/akademi/lms-backend/internal/lessons"
	"github.com/akademi/lms-backend/internal/logging"
	"github.com/akademi/lms-backend/internal/repositories"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing; larger
// file parts spill to temp files.
const maxUploadMemory = 32 << 20

// LessonHandler implements the lesson content endpoints.
type LessonHandler struct {
	Service LessonService
	Limiter RateLimiter
	Media   MediaURLs
}

// Collection handles /api/v1/lessons.
func (h LessonHandler) Collection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.create(w, r)
}

// Item handles /api/v1/lessons/{id}.
func (h LessonHandler) Item(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut, http.MethodPatch:
		h.update(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ModuleLessons handles GET /api/v1/modules/{id}/lessons.
func (h LessonHandler) ModuleLessons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Service == nil {
		logger.Error("lesson service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "lesson service unavailable"})
		return
	}

	moduleID := strings.TrimSpace(r.PathValue("id"))
	if moduleID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "module id is required"})
		return
	}

	items, err := h.Service.ListByModule(ctx, moduleID)
	if err != nil {
		h.respondServiceError(ctx, w, err, "list lessons")
		return
	}

	views := make([]lessonView, 0, len(items))
	for _, item := range items {
		views = append(views, h.view(item))
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"lessons": views})
}

func (h LessonHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Service == nil {
		logger.Error("lesson service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "lesson service unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "lessons") {
		logger.Warn("lesson create rate limited")
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}

	req, upload, err := decodeLessonRequest(r)
	if err != nil {
		logger.Warn("invalid lesson payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if req.ModuleID == "" || req.Title == nil || strings.TrimSpace(*req.Title) == "" || req.Kind == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "moduleId, title and kind are required"})
		return
	}

	in := lessons.CreateInput{
		ModuleID: req.ModuleID,
		Title:    strings.TrimSpace(*req.Title),
		Kind:     content.Kind(req.Kind),
		Content:  req.Content,
		Upload:   upload,
	}
	if req.Order != nil {
		in.Order = *req.Order
	}
	if req.IsPreview != nil {
		in.IsPreview = *req.IsPreview
	}

	created, err := h.Service.Create(ctx, in)
	if err != nil {
		h.respondServiceError(ctx, w, err, "create lesson")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, h.view(created))
}

func (h LessonHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Service == nil {
		logging.FromContext(ctx).Error("lesson service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "lesson service unavailable"})
		return
	}

	item, err := h.Service.Get(ctx, r.PathValue("id"))
	if err != nil {
		h.respondServiceError(ctx, w, err, "get lesson")
		return
	}

	respondJSON(ctx, w, http.StatusOK, h.view(item))
}

func (h LessonHandler) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Service == nil {
		logger.Error("lesson service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "lesson service unavailable"})
		return
	}

	req, upload, err := decodeLessonRequest(r)
	if err != nil {
		logger.Warn("invalid lesson payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	in := lessons.UpdateInput{
		ID:        r.PathValue("id"),
		Title:     req.Title,
		Order:     req.Order,
		IsPreview: req.IsPreview,
		Kind:      content.Kind(req.Kind),
		Content:   req.Content,
		Upload:    upload,
	}

	updated, err := h.Service.Update(ctx, in)
	if err != nil {
		h.respondServiceError(ctx, w, err, "update lesson")
		return
	}

	respondJSON(ctx, w, http.StatusOK, h.view(updated))
}

func (h LessonHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Service == nil {
		logging.FromContext(ctx).Error("lesson service unavailable")
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "lesson service unavailable"})
		return
	}

	if err := h.Service.Delete(ctx, r.PathValue("id")); err != nil {
		h.respondServiceError(ctx, w, err, "delete lesson")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h LessonHandler) respondServiceError(ctx context.Context, w http.ResponseWriter, err error, action string) {
	logger := logging.FromContext(ctx)

	var verr *content.ValidationError
	switch {
	case errors.As(err, &verr):
		logger.Warn(action+" rejected", "reason", string(verr.Reason), "field", verr.Field)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{
			"error":  verr.Message,
			"reason": string(verr.Reason),
			"field":  verr.Field,
		})
	case errors.Is(err, repositories.ErrNotFound):
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "lesson not found"})
	case errors.Is(err, repositories.ErrConflict):
		logger.Warn(action+" conflict", "error", err)
		respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "lesson was modified concurrently"})
	default:
		logger.Error(action+" failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "unable to " + action})
	}
}

// lessonRequest is the write-side wire shape. Pointer fields distinguish
// absent from zero so partial updates only touch what the caller sent.
type lessonRequest struct {
	ModuleID  string          `json:"moduleId"`
	Title     *string         `json:"title"`
	Order     *int            `json:"order"`
	IsPreview *bool           `json:"isPreview"`
	Kind      string          `json:"kind"`
	Content   json.RawMessage `json:"content"`
}

// decodeLessonRequest accepts either a JSON body or a multipart form whose
// "payload" field carries the same JSON document alongside an optional
// "file" part.
func decodeLessonRequest(r *http.Request) (lessonRequest, *lessons.Upload, error) {
	var req lessonRequest

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	if mediaType != "multipart/form-data" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return lessonRequest{}, nil, errors.New("invalid request body")
		}
		return req, nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return lessonRequest{}, nil, errors.New("invalid multipart form")
	}

	if raw := r.FormValue("payload"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			return lessonRequest{}, nil, errors.New("invalid payload field")
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return req, nil, nil
		}
		return lessonRequest{}, nil, errors.New("invalid file part")
	}

	return req, &lessons.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	}, nil
}

// lessonView is the read-side wire shape; Content holds the variant payload.
// StreamURL resolves once a video lesson's transcode has published a playlist.
type lessonView struct {
	ID        string          `json:"id"`
	ModuleID  string          `json:"moduleId"`
	Title     string          `json:"title"`
	Order     int             `json:"order"`
	IsPreview bool            `json:"isPreview"`
	Kind      content.Kind    `json:"kind"`
	Content   content.Payload `json:"content"`
	StreamURL string          `json:"streamUrl,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (h LessonHandler) view(item repositories.LessonContent) lessonView {
	view := lessonView{
		ID:        item.Lesson.ID,
		ModuleID:  item.Lesson.ModuleID,
		Title:     item.Lesson.Title,
		Order:     item.Lesson.Order,
		IsPreview: item.Lesson.IsPreview,
		Kind:      item.Lesson.Kind,
		Content:   item.Payload,
		CreatedAt: item.Lesson.CreatedAt,
		UpdatedAt: item.Lesson.UpdatedAt,
	}

	if h.Media != nil {
		if video, ok := item.Payload.(content.VideoPayload); ok && video.Status == content.StatusCompleted && video.PlaylistKey != "" {
			view.StreamURL = h.Media.PublicURL(video.PlaylistKey)
		}
	}

	return view
}
