package content

import "time"

// Kind discriminates the structural variant of a lesson's content.
type Kind string

const (
	KindVideo      Kind = "video"
	KindDocument   Kind = "document"
	KindQuiz       Kind = "quiz"
	KindHTML       Kind = "html"
	KindLive       Kind = "live"
	KindAssignment Kind = "assignment"
)

// ProcessingStatus tracks a video payload through the transcoding pipeline.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "PENDING"
	StatusProcessing ProcessingStatus = "PROCESSING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusFailed     ProcessingStatus = "FAILED"
)

// Payload is the variant-specific content attached to exactly one lesson.
type Payload interface {
	Kind() Kind
	Validate() error
	// BlobKeys lists the storage objects owned by this payload. Used by the
	// lifecycle manager to release blobs when the payload is destroyed.
	BlobKeys() []string
}

// VideoPayload references a raw upload and, once transcoding completes, the
// published HLS playlist.
type VideoPayload struct {
	SourceKey       string           `json:"source_key,omitempty"`
	PlaylistKey     string           `json:"playlist_key,omitempty"`
	DurationSeconds int              `json:"duration_seconds"`
	Status          ProcessingStatus `json:"status"`
	FailureReason   string           `json:"-"`
}

func (VideoPayload) Kind() Kind { return KindVideo }

func (p VideoPayload) Validate() error {
	if p.DurationSeconds < 0 {
		return fieldError("duration_seconds", "must not be negative")
	}
	switch p.Status {
	case "", StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
	default:
		return fieldError("status", "unknown processing status")
	}
	return nil
}

func (p VideoPayload) BlobKeys() []string {
	var keys []string
	if p.SourceKey != "" {
		keys = append(keys, p.SourceKey)
	}
	if p.PlaylistKey != "" {
		keys = append(keys, p.PlaylistKey)
	}
	return keys
}

// DocumentPayload references an uploaded file. FileType and FileSize are
// derived from the upload at write time, never taken from the client.
type DocumentPayload struct {
	FileKey  string `json:"file_key"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`
}

func (DocumentPayload) Kind() Kind { return KindDocument }

func (p DocumentPayload) Validate() error {
	if p.FileKey == "" {
		return fieldError("file_key", "is required")
	}
	if p.FileSize < 0 {
		return fieldError("file_size", "must not be negative")
	}
	return nil
}

func (p DocumentPayload) BlobKeys() []string {
	if p.FileKey == "" {
		return nil
	}
	return []string{p.FileKey}
}

// Question is one entry of a quiz. Questions are embedded in the quiz payload
// rather than normalized into their own records.
type Question struct {
	Text          string   `json:"text"`
	Choices       []string `json:"choices"`
	CorrectAnswer string   `json:"correct_answer"`
}

// QuizPayload holds a self-contained quiz definition.
type QuizPayload struct {
	PassingScore     int        `json:"passing_score"`
	TimeLimitMinutes int        `json:"time_limit_minutes"`
	Questions        []Question `json:"questions"`
}

func (QuizPayload) Kind() Kind { return KindQuiz }

func (p QuizPayload) Validate() error {
	if p.PassingScore < 0 || p.PassingScore > 100 {
		return fieldError("passing_score", "must be between 0 and 100")
	}
	if p.TimeLimitMinutes <= 0 {
		return fieldError("time_limit_minutes", "must be positive")
	}
	for _, q := range p.Questions {
		if q.Text == "" {
			return fieldError("questions", "question text is required")
		}
		if len(q.Choices) < 2 {
			return fieldError("questions", "questions need at least two choices")
		}
		var found bool
		for _, choice := range q.Choices {
			if choice == q.CorrectAnswer {
				found = true
				break
			}
		}
		if !found {
			return fieldError("questions", "correct answer must be one of the choices")
		}
	}
	return nil
}

func (QuizPayload) BlobKeys() []string { return nil }

// HTMLPayload is a rich-text lesson body.
type HTMLPayload struct {
	Body string `json:"body"`
}

func (HTMLPayload) Kind() Kind { return KindHTML }

func (p HTMLPayload) Validate() error {
	if p.Body == "" {
		return fieldError("body", "is required")
	}
	return nil
}

func (HTMLPayload) BlobKeys() []string { return nil }

// LivePayload schedules a live session with an optional recording link filled
// in afterwards.
type LivePayload struct {
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	MeetingURL   string    `json:"meeting_url"`
	RecordingURL string    `json:"recording_url,omitempty"`
}

func (LivePayload) Kind() Kind { return KindLive }

func (p LivePayload) Validate() error {
	if p.StartsAt.IsZero() || p.EndsAt.IsZero() {
		return fieldError("starts_at", "start and end times are required")
	}
	if !p.EndsAt.After(p.StartsAt) {
		return fieldError("ends_at", "must be after starts_at")
	}
	if p.MeetingURL == "" {
		return fieldError("meeting_url", "is required")
	}
	return nil
}

func (LivePayload) BlobKeys() []string { return nil }

// AssignmentPayload describes graded homework attached to a module.
type AssignmentPayload struct {
	DueAt              time.Time `json:"due_at"`
	Points             int       `json:"points"`
	SubmissionRequired bool      `json:"submission_required"`
}

func (AssignmentPayload) Kind() Kind { return KindAssignment }

func (p AssignmentPayload) Validate() error {
	if p.DueAt.IsZero() {
		return fieldError("due_at", "is required")
	}
	if p.Points < 0 {
		return fieldError("points", "must not be negative")
	}
	return nil
}

func (AssignmentPayload) BlobKeys() []string { return nil }
