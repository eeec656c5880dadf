package lessons

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akademi/lms-backend/internal/content"
	"github.com/akademi/lms-backend/internal/models"
	"github.com/akademi/lms-backend/internal/repositories"
)

type repoStub struct {
	existing repositories.LessonContent
	getErr   error

	createErr      error
	createEv       repositories.Event
	created        []repositories.LessonContent
	updated        []repositories.LessonContent
	expectedOrders []int
	updateEv       repositories.Event
	updateErr      error
	converted      []repositories.LessonContent
	convertEv      repositories.Event
	convertErr     error
	deleted        []string
	deleteEv       repositories.Event
}

func (r *repoStub) Create(ctx context.Context, lesson models.Lesson, payload content.Payload) (repositories.Event, error) {
	if r.createErr != nil {
		return repositories.Event{}, r.createErr
	}
	r.created = append(r.created, repositories.LessonContent{Lesson: lesson, Payload: payload})
	return r.createEv, nil
}

func (r *repoStub) Get(ctx context.Context, id string) (repositories.LessonContent, error) {
	if r.getErr != nil {
		return repositories.LessonContent{}, r.getErr
	}
	return r.existing, nil
}

func (r *repoStub) ListByModule(ctx context.Context, moduleID string) ([]repositories.LessonContent, error) {
	return []repositories.LessonContent{r.existing}, nil
}

func (r *repoStub) Update(ctx context.Context, lesson models.Lesson, expectedOrder int, payload content.Payload) (repositories.Event, error) {
	if r.updateErr != nil {
		return repositories.Event{}, r.updateErr
	}
	r.updated = append(r.updated, repositories.LessonContent{Lesson: lesson, Payload: payload})
	r.expectedOrders = append(r.expectedOrders, expectedOrder)
	return r.updateEv, nil
}

func (r *repoStub) ConvertKind(ctx context.Context, lesson models.Lesson, payload content.Payload) (repositories.Event, error) {
	if r.convertErr != nil {
		return repositories.Event{}, r.convertErr
	}
	r.converted = append(r.converted, repositories.LessonContent{Lesson: lesson, Payload: payload})
	return r.convertEv, nil
}

func (r *repoStub) Delete(ctx context.Context, id string) (repositories.Event, error) {
	r.deleted = append(r.deleted, id)
	return r.deleteEv, nil
}

type uploaderStub struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (u *uploaderStub) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	u.mu.Lock()
	u.saved = append(u.saved, name)
	u.mu.Unlock()
	return name, nil
}

type queueStub struct {
	enqueued []string
	err      error
}

func (q *queueStub) Enqueue(ctx context.Context, lessonID string) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, lessonID)
	return nil
}

type cleanerStub struct {
	cleaned [][]string
}

func (c *cleanerStub) Cleanup(ctx context.Context, keys []string) {
	c.cleaned = append(c.cleaned, keys)
}

func newTestService(repo *repoStub, uploads *uploaderStub, queue *queueStub, cleaner *cleanerStub) *Service {
	svc := NewService(repo, uploads, queue, cleaner, "media")
	svc.NowFunc = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestCreateHTMLLesson(t *testing.T) {
	repo := &repoStub{}
	uploads := &uploaderStub{}
	queue := &queueStub{}
	cleaner := &cleanerStub{}
	svc := newTestService(repo, uploads, queue, cleaner)

	created, err := svc.Create(context.Background(), CreateInput{
		ModuleID: "module-1",
		Title:    "Welcome",
		Order:    2,
		Kind:     content.KindHTML,
		Content:  json.RawMessage(`{"body":"<p>hi</p>"}`),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created.Lesson.ID == "" || created.Lesson.Kind != content.KindHTML || created.Lesson.Order != 2 {
		t.Fatalf("unexpected lesson: %+v", created.Lesson)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one repository create, got %d", len(repo.created))
	}
	if len(queue.enqueued) != 0 || len(cleaner.cleaned) != 0 {
		t.Fatal("html lesson must not trigger transcode or cleanup")
	}
}

func TestCreateVideoLessonWithUpload(t *testing.T) {
	repo := &repoStub{createEv: repositories.Event{TranscodeLessonID: "routed"}}
	uploads := &uploaderStub{}
	queue := &queueStub{}
	cleaner := &cleanerStub{}
	svc := newTestService(repo, uploads, queue, cleaner)

	created, err := svc.Create(context.Background(), CreateInput{
		ModuleID: "module-1",
		Title:    "Lecture",
		Kind:     content.KindVideo,
		Upload: &Upload{
			Filename: "lecture.mp4",
			Size:     10 << 20,
			Content:  strings.NewReader("bytes"),
		},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	video, ok := created.Payload.(content.VideoPayload)
	if !ok {
		t.Fatalf("expected video payload, got %T", created.Payload)
	}
	if video.Status != content.StatusPending {
		t.Fatalf("expected new upload to be PENDING, got %s", video.Status)
	}
	if !strings.HasPrefix(video.SourceKey, "media/uploads/") || !strings.HasSuffix(video.SourceKey, "/lecture.mp4") {
		t.Fatalf("unexpected source key: %s", video.SourceKey)
	}
	if len(uploads.saved) != 1 {
		t.Fatalf("expected one stored upload, got %d", len(uploads.saved))
	}
	if len(queue.enqueued) != 1 || queue.enqueued[0] != "routed" {
		t.Fatalf("expected transcode enqueued from event, got %v", queue.enqueued)
	}
}

func TestCreateRejectsOversizeUploadBeforeStorage(t *testing.T) {
	repo := &repoStub{}
	uploads := &uploaderStub{}
	svc := newTestService(repo, uploads, &queueStub{}, &cleanerStub{})

	_, err := svc.Create(context.Background(), CreateInput{
		ModuleID: "module-1",
		Title:    "Lecture",
		Kind:     content.KindVideo,
		Upload: &Upload{
			Filename: "lecture.mp4",
			Size:     100<<20 + 1,
			Content:  strings.NewReader("bytes"),
		},
	})

	var verr *content.ValidationError
	if !errors.As(err, &verr) || verr.Reason != content.ReasonFileTooLarge {
		t.Fatalf("expected file_too_large, got %v", err)
	}
	if len(uploads.saved) != 0 {
		t.Fatal("rejected upload must not reach storage")
	}
	if len(repo.created) != 0 {
		t.Fatal("rejected upload must not reach the repository")
	}
}

func TestCreateRejectsUploadForNonFileKind(t *testing.T) {
	repo := &repoStub{}
	uploads := &uploaderStub{}
	svc := newTestService(repo, uploads, &queueStub{}, &cleanerStub{})

	_, err := svc.Create(context.Background(), CreateInput{
		ModuleID: "module-1",
		Title:    "Quiz",
		Kind:     content.KindQuiz,
		Upload: &Upload{
			Filename: "notes.pdf",
			Size:     1024,
			Content:  strings.NewReader("bytes"),
		},
	})

	var verr *content.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(uploads.saved) != 0 || len(repo.created) != 0 {
		t.Fatal("rejected write must have no side effects")
	}
}

func TestCreateCleansUpBlobWhenRepositoryFails(t *testing.T) {
	repo := &repoStub{createErr: errors.New("db down")}
	uploads := &uploaderStub{}
	cleaner := &cleanerStub{}
	svc := newTestService(repo, uploads, &queueStub{}, cleaner)

	_, err := svc.Create(context.Background(), CreateInput{
		ModuleID: "module-1",
		Title:    "Handout",
		Kind:     content.KindDocument,
		Upload: &Upload{
			Filename: "handout.pdf",
			Size:     1024,
			Content:  strings.NewReader("bytes"),
		},
	})
	if err == nil {
		t.Fatal("expected repository error")
	}

	if len(cleaner.cleaned) != 1 || len(cleaner.cleaned[0]) != 1 {
		t.Fatalf("expected stored upload released, got %v", cleaner.cleaned)
	}
	if cleaner.cleaned[0][0] != uploads.saved[0] {
		t.Fatalf("expected the stored key cleaned, got %v", cleaner.cleaned)
	}
}

func TestUpdateMergesSameKindPayload(t *testing.T) {
	existing := repositories.LessonContent{
		Lesson: models.Lesson{ID: "lesson-1", ModuleID: "module-1", Title: "Quiz", Order: 1, Kind: content.KindQuiz},
		Payload: content.QuizPayload{
			PassingScore:     70,
			TimeLimitMinutes: 30,
			Questions:        []content.Question{{Text: "2+2?", Choices: []string{"3", "4"}, CorrectAnswer: "4"}},
		},
	}
	repo := &repoStub{existing: existing}
	svc := newTestService(repo, &uploaderStub{}, &queueStub{}, &cleanerStub{})

	updated, err := svc.Update(context.Background(), UpdateInput{
		ID:      "lesson-1",
		Content: json.RawMessage(`{"passing_score":85}`),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	quiz := updated.Payload.(content.QuizPayload)
	if quiz.PassingScore != 85 {
		t.Fatalf("expected merged passing score, got %d", quiz.PassingScore)
	}
	if quiz.TimeLimitMinutes != 30 || len(quiz.Questions) != 1 {
		t.Fatalf("expected untouched fields preserved, got %+v", quiz)
	}
	if len(repo.updated) != 1 || len(repo.converted) != 0 {
		t.Fatal("same-kind update must not run the conversion path")
	}
}

func TestUpdateConversionPreservesIdentityModuleAndOrder(t *testing.T) {
	existing := repositories.LessonContent{
		Lesson:  models.Lesson{ID: "lesson-1", ModuleID: "module-1", Title: "Handout", Order: 4, Kind: content.KindDocument},
		Payload: content.DocumentPayload{FileKey: "media/uploads/a/handout.pdf", FileType: "pdf", FileSize: 100},
	}
	repo := &repoStub{existing: existing, convertEv: repositories.Event{OrphanedBlobs: []string{"media/uploads/a/handout.pdf"}}}
	cleaner := &cleanerStub{}
	svc := newTestService(repo, &uploaderStub{}, &queueStub{}, cleaner)

	updated, err := svc.Update(context.Background(), UpdateInput{
		ID:      "lesson-1",
		Kind:    content.KindHTML,
		Content: json.RawMessage(`{"body":"<p>now html</p>"}`),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if len(repo.converted) != 1 {
		t.Fatalf("expected conversion, got %d", len(repo.converted))
	}
	got := repo.converted[0].Lesson
	if got.ID != "lesson-1" || got.ModuleID != "module-1" || got.Order != 4 {
		t.Fatalf("conversion must preserve identity, module and order: %+v", got)
	}
	if got.Kind != content.KindHTML || updated.Lesson.Kind != content.KindHTML {
		t.Fatalf("expected html kind after conversion, got %s", got.Kind)
	}
	if len(cleaner.cleaned) != 1 || cleaner.cleaned[0][0] != "media/uploads/a/handout.pdf" {
		t.Fatalf("expected old blob routed to cleanup, got %v", cleaner.cleaned)
	}
}

func TestUpdateConversionValidationFailureMutatesNothing(t *testing.T) {
	existing := repositories.LessonContent{
		Lesson:  models.Lesson{ID: "lesson-1", ModuleID: "module-1", Title: "Handout", Order: 4, Kind: content.KindDocument},
		Payload: content.DocumentPayload{FileKey: "media/uploads/a/handout.pdf"},
	}
	repo := &repoStub{existing: existing}
	uploads := &uploaderStub{}
	svc := newTestService(repo, uploads, &queueStub{}, &cleanerStub{})

	// html requires a body; the conversion target fails validation.
	_, err := svc.Update(context.Background(), UpdateInput{
		ID:      "lesson-1",
		Kind:    content.KindHTML,
		Content: json.RawMessage(`{}`),
	})
	if err == nil {
		t.Fatal("expected validation error")
	}

	if len(repo.converted) != 0 || len(repo.updated) != 0 || len(uploads.saved) != 0 {
		t.Fatal("failed conversion must leave the lesson untouched")
	}
}

func TestUpdateVideoReuploadResetsPipelineState(t *testing.T) {
	existing := repositories.LessonContent{
		Lesson: models.Lesson{ID: "lesson-1", ModuleID: "module-1", Title: "Lecture", Kind: content.KindVideo},
		Payload: content.VideoPayload{
			SourceKey:       "media/uploads/old/lecture.mp4",
			PlaylistKey:     "media/course_videos/hls/lecture/index.m3u8",
			DurationSeconds: 300,
			Status:          content.StatusCompleted,
		},
	}
	repo := &repoStub{existing: existing, updateEv: repositories.Event{TranscodeLessonID: "lesson-1"}}
	queue := &queueStub{}
	svc := newTestService(repo, &uploaderStub{}, queue, &cleanerStub{})

	updated, err := svc.Update(context.Background(), UpdateInput{
		ID: "lesson-1",
		Upload: &Upload{
			Filename: "lecture-v2.mp4",
			Size:     1 << 20,
			Content:  strings.NewReader("bytes"),
		},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	video := updated.Payload.(content.VideoPayload)
	if video.Status != content.StatusPending {
		t.Fatalf("expected reupload to reset status to PENDING, got %s", video.Status)
	}
	if video.PlaylistKey != "" || video.DurationSeconds != 0 {
		t.Fatalf("expected derived fields cleared, got %+v", video)
	}
	if !strings.HasSuffix(video.SourceKey, "/lecture-v2.mp4") {
		t.Fatalf("expected new source key, got %s", video.SourceKey)
	}
	if len(queue.enqueued) != 1 {
		t.Fatalf("expected transcode enqueued, got %v", queue.enqueued)
	}
}

func TestUpdateReorderUsesObservedOrder(t *testing.T) {
	existing := repositories.LessonContent{
		Lesson:  models.Lesson{ID: "lesson-1", ModuleID: "module-1", Title: "Welcome", Order: 2, Kind: content.KindHTML},
		Payload: content.HTMLPayload{Body: "<p>hi</p>"},
	}
	repo := &repoStub{existing: existing}
	svc := newTestService(repo, &uploaderStub{}, &queueStub{}, &cleanerStub{})

	newOrder := 7
	updated, err := svc.Update(context.Background(), UpdateInput{ID: "lesson-1", Order: &newOrder})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if len(repo.updated) != 1 {
		t.Fatalf("expected one update, got %d", len(repo.updated))
	}
	if repo.expectedOrders[0] != 2 {
		t.Fatalf("expected observed order 2 passed through, got %d", repo.expectedOrders[0])
	}
	if repo.updated[0].Lesson.Order != 7 || updated.Lesson.Order != 7 {
		t.Fatalf("expected new order written, got %d", repo.updated[0].Lesson.Order)
	}
}

func TestUpdateReorderConflictPropagates(t *testing.T) {
	existing := repositories.LessonContent{
		Lesson:  models.Lesson{ID: "lesson-1", ModuleID: "module-1", Title: "Welcome", Order: 2, Kind: content.KindHTML},
		Payload: content.HTMLPayload{Body: "<p>hi</p>"},
	}
	repo := &repoStub{existing: existing, updateErr: repositories.ErrConflict}
	queue := &queueStub{}
	cleaner := &cleanerStub{}
	svc := newTestService(repo, &uploaderStub{}, queue, cleaner)

	newOrder := 7
	_, err := svc.Update(context.Background(), UpdateInput{ID: "lesson-1", Order: &newOrder})
	if !errors.Is(err, repositories.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if len(queue.enqueued) != 0 || len(cleaner.cleaned) != 0 {
		t.Fatal("a conflicted update must not route side effects")
	}
}

func TestDeleteRoutesOrphanedBlobs(t *testing.T) {
	repo := &repoStub{deleteEv: repositories.Event{OrphanedBlobs: []string{"media/uploads/a/clip.mp4", "media/course_videos/hls/clip/index.m3u8"}}}
	cleaner := &cleanerStub{}
	svc := newTestService(repo, &uploaderStub{}, &queueStub{}, cleaner)

	if err := svc.Delete(context.Background(), "lesson-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if len(repo.deleted) != 1 || repo.deleted[0] != "lesson-1" {
		t.Fatalf("expected repository delete, got %v", repo.deleted)
	}
	if len(cleaner.cleaned) != 1 || len(cleaner.cleaned[0]) != 2 {
		t.Fatalf("expected both blobs routed to cleanup, got %v", cleaner.cleaned)
	}
}

func TestEnqueueFailureDoesNotFailTheWrite(t *testing.T) {
	repo := &repoStub{createEv: repositories.Event{TranscodeLessonID: "lesson-1"}}
	queue := &queueStub{err: errors.New("queue full")}
	svc := newTestService(repo, &uploaderStub{}, queue, &cleanerStub{})

	_, err := svc.Create(context.Background(), CreateInput{
		ModuleID: "module-1",
		Title:    "Lecture",
		Kind:     content.KindVideo,
		Upload: &Upload{
			Filename: "clip.mp4",
			Size:     1 << 20,
			Content:  strings.NewReader("bytes"),
		},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatal("expected lesson persisted despite enqueue failure")
	}
}
