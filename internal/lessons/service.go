// Package lessons orchestrates lesson writes: upload validation, variant
// dispatch, the type conversion protocol, and routing of post-commit events
// to the transcode queue and blob cleanup.
package lessons

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/akademi/lms-backend/internal/content"
	"github.com/akademi/lms-backend/internal/logging"
	"github.com/akademi/lms-backend/internal/models"
	"github.com/akademi/lms-backend/internal/repositories"
)

// Queue accepts transcode submissions after the owning write has committed.
type Queue interface {
	Enqueue(ctx context.Context, lessonID string) error
}

// Cleaner releases blobs that lost their owning payload.
type Cleaner interface {
	Cleanup(ctx context.Context, keys []string)
}

// Uploader persists raw uploads to blob storage.
type Uploader interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// Upload is a candidate file attached to a lesson write. The validator only
// needs the name and declared size; content bytes are streamed to storage
// after the policy check passes.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// Service coordinates lesson writes against the repository and storage.
type Service struct {
	repo      repositories.LessonRepository
	uploads   Uploader
	queue     Queue
	cleaner   Cleaner
	mediaRoot string

	NowFunc func() time.Time
}

// NewService wires a lesson service.
func NewService(repo repositories.LessonRepository, uploads Uploader, queue Queue, cleaner Cleaner, mediaRoot string) *Service {
	return &Service{
		repo:      repo,
		uploads:   uploads,
		queue:     queue,
		cleaner:   cleaner,
		mediaRoot: mediaRoot,
	}
}

// CreateInput carries a discriminated lesson create request.
type CreateInput struct {
	ModuleID  string
	Title     string
	Order     int
	IsPreview bool
	Kind      content.Kind
	Content   json.RawMessage
	Upload    *Upload
}

// UpdateInput carries a lesson update. When Kind differs from the lesson's
// current variant the conversion protocol applies; otherwise fields are
// merged into the existing payload.
type UpdateInput struct {
	ID        string
	Title     *string
	Order     *int
	IsPreview *bool
	Kind      content.Kind
	Content   json.RawMessage
	Upload    *Upload
}

// Create validates and persists a new lesson with its payload. Validation
// runs strictly before any storage or database write.
func (s *Service) Create(ctx context.Context, in CreateInput) (repositories.LessonContent, error) {
	payload, uploadedKey, err := s.buildPayload(ctx, in.Kind, in.Content, in.Upload)
	if err != nil {
		return repositories.LessonContent{}, err
	}

	now := s.now()
	lesson := models.Lesson{
		ID:        uuid.NewString(),
		ModuleID:  in.ModuleID,
		Title:     in.Title,
		Order:     in.Order,
		IsPreview: in.IsPreview,
		Kind:      in.Kind,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ev, err := s.repo.Create(ctx, lesson, payload)
	if err != nil {
		// The upload is already in storage; without a lesson row it has no
		// owner, so release it.
		if uploadedKey != "" {
			s.cleaner.Cleanup(ctx, []string{uploadedKey})
		}
		return repositories.LessonContent{}, err
	}

	s.route(ctx, ev)

	return repositories.LessonContent{Lesson: lesson, Payload: payload}, nil
}

// Get returns a lesson with its payload.
func (s *Service) Get(ctx context.Context, id string) (repositories.LessonContent, error) {
	return s.repo.Get(ctx, id)
}

// ListByModule returns the module's lessons in display order.
func (s *Service) ListByModule(ctx context.Context, moduleID string) ([]repositories.LessonContent, error) {
	return s.repo.ListByModule(ctx, moduleID)
}

// Update applies a same-kind field update or, when the discriminator
// changes, runs the conversion protocol: the new payload is validated and
// staged before anything belonging to the old variant is touched.
func (s *Service) Update(ctx context.Context, in UpdateInput) (repositories.LessonContent, error) {
	existing, err := s.repo.Get(ctx, in.ID)
	if err != nil {
		return repositories.LessonContent{}, err
	}

	targetKind := in.Kind
	if targetKind == "" {
		targetKind = existing.Lesson.Kind
	}

	if targetKind != existing.Lesson.Kind {
		return s.convert(ctx, existing, targetKind, in)
	}

	def, err := content.Lookup(targetKind)
	if err != nil {
		return repositories.LessonContent{}, err
	}

	payload, err := content.Merge(existing.Payload, in.Content)
	if err != nil {
		return repositories.LessonContent{}, err
	}

	if in.Upload != nil {
		// A fresh upload supersedes the current file and, for video,
		// restarts the processing state machine.
		payload, _, err = s.applyUpload(ctx, def, resetForReupload(payload), in.Upload)
		if err != nil {
			return repositories.LessonContent{}, err
		}
	}

	lesson := existing.Lesson
	applyLessonFields(&lesson, in)
	lesson.UpdatedAt = s.now()

	ev, err := s.repo.Update(ctx, lesson, existing.Lesson.Order, payload)
	if err != nil {
		return repositories.LessonContent{}, err
	}

	s.route(ctx, ev)

	return repositories.LessonContent{Lesson: lesson, Payload: payload}, nil
}

// convert executes the variant change. The target payload must validate in
// full before the swap; a validation failure leaves the lesson untouched.
func (s *Service) convert(ctx context.Context, existing repositories.LessonContent, targetKind content.Kind, in UpdateInput) (repositories.LessonContent, error) {
	payload, uploadedKey, err := s.buildPayload(ctx, targetKind, in.Content, in.Upload)
	if err != nil {
		return repositories.LessonContent{}, err
	}

	// Identity, module and order carry over unless the caller supplies new
	// values; the lesson keeps its id so external references survive.
	lesson := existing.Lesson
	lesson.Kind = targetKind
	applyLessonFields(&lesson, in)
	lesson.UpdatedAt = s.now()

	ev, err := s.repo.ConvertKind(ctx, lesson, payload)
	if err != nil {
		if uploadedKey != "" {
			s.cleaner.Cleanup(ctx, []string{uploadedKey})
		}
		return repositories.LessonContent{}, err
	}

	s.route(ctx, ev)

	return repositories.LessonContent{Lesson: lesson, Payload: payload}, nil
}

// Delete removes a lesson and releases any blobs its payload owned.
func (s *Service) Delete(ctx context.Context, id string) error {
	ev, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	s.route(ctx, ev)
	return nil
}

// buildPayload decodes a full payload document for the kind and binds the
// upload when one accompanies it. Without an upload the document must be
// complete on its own; with one, derived file fields come from the stored
// object, so validation runs after binding.
func (s *Service) buildPayload(ctx context.Context, kind content.Kind, raw json.RawMessage, upload *Upload) (content.Payload, string, error) {
	def, err := content.Lookup(kind)
	if err != nil {
		return nil, "", err
	}

	if upload == nil {
		payload, err := content.Decode(kind, raw)
		if err != nil {
			return nil, "", err
		}
		return payload, "", nil
	}

	payload, err := content.DecodePartial(kind, raw)
	if err != nil {
		return nil, "", err
	}

	payload, uploadedKey, err := s.applyUpload(ctx, def, payload, upload)
	if err != nil {
		return nil, "", err
	}

	if err := payload.Validate(); err != nil {
		s.cleaner.Cleanup(ctx, []string{uploadedKey})
		return nil, "", err
	}

	return payload, uploadedKey, nil
}

// applyUpload runs the variant's upload policy and, once accepted, streams
// the file to storage and binds the stored key into the payload.
func (s *Service) applyUpload(ctx context.Context, def content.Definition, payload content.Payload, upload *Upload) (content.Payload, string, error) {
	if upload == nil {
		return payload, "", nil
	}

	if !def.FileBacked() {
		return nil, "", &content.ValidationError{
			Reason:  content.ReasonInvalidField,
			Field:   "file",
			Message: fmt.Sprintf("%s lessons do not accept file uploads", def.Kind),
		}
	}

	if err := def.Upload.Check(upload.Filename, upload.Size); err != nil {
		return nil, "", err
	}

	key := path.Join(s.mediaRoot, "uploads", uuid.NewString(), upload.Filename)
	storedKey, err := s.uploads.Save(ctx, key, upload.Content)
	if err != nil {
		return nil, "", fmt.Errorf("store upload: %w", err)
	}

	switch p := payload.(type) {
	case content.VideoPayload:
		p.SourceKey = storedKey
		p.PlaylistKey = ""
		p.Status = content.StatusPending
		p.FailureReason = ""
		return p, storedKey, nil
	case content.DocumentPayload:
		p.FileKey = storedKey
		p.FileType = content.Extension(upload.Filename)
		p.FileSize = upload.Size
		return p, storedKey, nil
	default:
		return nil, "", fmt.Errorf("apply upload: unhandled file-backed kind %s", def.Kind)
	}
}

// route dispatches the side effects of a committed write. Enqueue failures
// leave the video in PENDING for an operator-triggered retry.
func (s *Service) route(ctx context.Context, ev repositories.Event) {
	logger := logging.FromContext(ctx)

	if ev.TranscodeLessonID != "" {
		if err := s.queue.Enqueue(ctx, ev.TranscodeLessonID); err != nil {
			logger.Error("enqueue transcode", "lessonId", ev.TranscodeLessonID, "error", err)
		}
	}

	if len(ev.OrphanedBlobs) > 0 {
		s.cleaner.Cleanup(ctx, ev.OrphanedBlobs)
	}
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}

func applyLessonFields(lesson *models.Lesson, in UpdateInput) {
	if in.Title != nil {
		lesson.Title = *in.Title
	}
	if in.Order != nil {
		lesson.Order = *in.Order
	}
	if in.IsPreview != nil {
		lesson.IsPreview = *in.IsPreview
	}
}

// resetForReupload clears derived fields that belong to the superseded file.
func resetForReupload(payload content.Payload) content.Payload {
	if p, ok := payload.(content.VideoPayload); ok {
		p.PlaylistKey = ""
		p.DurationSeconds = 0
		p.Status = content.StatusPending
		p.FailureReason = ""
		return p
	}
	return payload
}
