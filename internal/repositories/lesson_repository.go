package repositories

import (
	"context"

	"github.com/akademi/lms-backend/internal/content"
	"github.com/akademi/lms-backend/internal/models"
)

// LessonContent pairs a lesson with its variant payload.
type LessonContent struct {
	Lesson  models.Lesson
	Payload content.Payload
}

// Event describes side effects the caller must route after a committed
// write: a transcode submission and/or blobs left without an owner. Writes
// never dispatch these themselves; the dependency stays visible at the call
// site.
type Event struct {
	TranscodeLessonID string
	OrphanedBlobs     []string
}

// LessonRepository owns the ordered collection of lessons per module and the
// one-payload-per-lesson invariant.
type LessonRepository interface {
	Create(ctx context.Context, lesson models.Lesson, payload content.Payload) (Event, error)
	Get(ctx context.Context, id string) (LessonContent, error)
	ListByModule(ctx context.Context, moduleID string) ([]LessonContent, error)
	// Update replaces the payload of a lesson without changing its kind.
	// An order change is compare-and-set against the order the caller
	// observed; losing the race returns ErrConflict with nothing written.
	Update(ctx context.Context, lesson models.Lesson, expectedOrder int, payload content.Payload) (Event, error)
	// ConvertKind swaps a lesson to a structurally different variant in one
	// transaction: the new payload is written and the tag flipped before the
	// old payload row is removed.
	ConvertKind(ctx context.Context, lesson models.Lesson, payload content.Payload) (Event, error)
	Delete(ctx context.Context, id string) (Event, error)
}

// ProgressRepository upserts per-user lesson progress.
type ProgressRepository interface {
	Upsert(ctx context.Context, progress models.LessonProgress) (models.LessonProgress, error)
	Find(ctx context.Context, userID, lessonID string) (models.LessonProgress, error)
}
