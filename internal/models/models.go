package models

import (
	"time"

	"github.com/akademi/lms-backend/internal/content"
)

// Lesson is the base record shared by every content variant. Exactly one
// payload of the tagged kind exists for each lesson at any time.
type Lesson struct {
	ID        string
	ModuleID  string
	Title     string
	Order     int
	IsPreview bool
	Kind      content.Kind
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LessonProgress tracks one user's position in one lesson. The (user, lesson)
// pair is unique; updates are idempotent upserts.
type LessonProgress struct {
	UserID              string
	LessonID            string
	IsCompleted         bool
	ProgressPercentage  int
	LastPositionSeconds int
	UpdatedAt           time.Time
}

// CompletionThreshold is the progress percentage at which a lesson counts as
// completed.
const CompletionThreshold = 90
