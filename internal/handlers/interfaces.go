package handlers

import (
	"context"

	"github.com/akademi/lms-backend/internal/lessons"
	"github.com/akademi/lms-backend/internal/models"
	"github.com/akademi/lms-backend/internal/repositories"
)

// LessonService captures the lesson write and read operations required by the
// lesson handlers.
type LessonService interface {
	Create(ctx context.Context, in lessons.CreateInput) (repositories.LessonContent, error)
	Get(ctx context.Context, id string) (repositories.LessonContent, error)
	ListByModule(ctx context.Context, moduleID string) ([]repositories.LessonContent, error)
	Update(ctx context.Context, in lessons.UpdateInput) (repositories.LessonContent, error)
	Delete(ctx context.Context, id string) error
}

// ProgressStore captures persistence for per-user lesson progress.
type ProgressStore interface {
	Upsert(ctx context.Context, progress models.LessonProgress) (models.LessonProgress, error)
	Find(ctx context.Context, userID, lessonID string) (models.LessonProgress, error)
}

// MediaURLs resolves externally reachable locations for stored blobs.
type MediaURLs interface {
	PublicURL(key string) string
}
