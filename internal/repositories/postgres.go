package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/akademi/lms-backend/internal/content"
	"github.com/akademi/lms-backend/internal/db"
	"github.com/akademi/lms-backend/internal/models"
	"github.com/akademi/lms-backend/internal/transcode"
)

// querier is satisfied by both pooled connections and transactions.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresLessonRepository provides PostgreSQL-backed persistence for lessons
// and their variant payloads.
type PostgresLessonRepository struct {
	pool db.Pool
}

// NewPostgresLessonRepository constructs a lesson repository backed by PostgreSQL.
func NewPostgresLessonRepository(pool db.Pool) *PostgresLessonRepository {
	return &PostgresLessonRepository{pool: pool}
}

// Create persists a lesson and its payload atomically: either both rows exist
// afterwards or neither does.
func (r *PostgresLessonRepository) Create(ctx context.Context, lesson models.Lesson, payload content.Payload) (Event, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("begin create lesson: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
        INSERT INTO lessons (id, module_id, title, "order", is_preview, kind, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, lesson.ID, lesson.ModuleID, lesson.Title, lesson.Order, lesson.IsPreview, lesson.Kind, lesson.CreatedAt, lesson.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return Event{}, ErrConflict
			case "23503":
				return Event{}, ErrNotFound
			}
		}
		return Event{}, fmt.Errorf("insert lesson: %w", err)
	}

	if err := insertPayload(ctx, tx, lesson.ID, payload); err != nil {
		return Event{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Event{}, fmt.Errorf("commit create lesson: %w", err)
	}

	return eventFor(lesson.ID, payload, nil), nil
}

// Get fetches a lesson together with its payload.
func (r *PostgresLessonRepository) Get(ctx context.Context, id string) (LessonContent, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return LessonContent{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	lesson, err := scanLesson(ctx, conn, id)
	if err != nil {
		return LessonContent{}, err
	}

	payload, err := scanPayload(ctx, conn, lesson.ID, lesson.Kind)
	if err != nil {
		return LessonContent{}, err
	}

	return LessonContent{Lesson: lesson, Payload: payload}, nil
}

// ListByModule returns the module's lessons in display order: ascending order
// value, ties broken by identifier.
func (r *PostgresLessonRepository) ListByModule(ctx context.Context, moduleID string) ([]LessonContent, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, module_id, title, "order", is_preview, kind, created_at, updated_at
        FROM lessons
        WHERE module_id = $1
        ORDER BY "order", id
    `, moduleID)
	if err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}

	var lessons []models.Lesson
	for rows.Next() {
		var lesson models.Lesson
		if err := rows.Scan(&lesson.ID, &lesson.ModuleID, &lesson.Title, &lesson.Order, &lesson.IsPreview, &lesson.Kind, &lesson.CreatedAt, &lesson.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, lesson)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lessons: %w", err)
	}

	out := make([]LessonContent, 0, len(lessons))
	for _, lesson := range lessons {
		payload, err := scanPayload(ctx, conn, lesson.ID, lesson.Kind)
		if err != nil {
			return nil, err
		}
		out = append(out, LessonContent{Lesson: lesson, Payload: payload})
	}

	return out, nil
}

// Update rewrites the lesson's base fields and payload without changing its
// kind, all in one transaction. An order change only applies when the row
// still holds the order the caller observed; a concurrent move surfaces as
// ErrConflict. Blobs no longer referenced by the new payload are reported as
// orphans for the caller to clean up.
func (r *PostgresLessonRepository) Update(ctx context.Context, lesson models.Lesson, expectedOrder int, payload content.Payload) (Event, error) {
	if lesson.Kind != payload.Kind() {
		return Event{}, fmt.Errorf("update lesson %s: payload kind %s does not match lesson kind %s", lesson.ID, payload.Kind(), lesson.Kind)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("begin update lesson: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	old, err := lockLesson(ctx, tx, lesson.ID)
	if err != nil {
		return Event{}, err
	}
	if old.Kind != lesson.Kind {
		return Event{}, ErrConflict
	}

	oldPayload, err := scanPayload(ctx, tx, lesson.ID, old.Kind)
	if err != nil {
		return Event{}, err
	}

	order := old.Order
	if lesson.Order != expectedOrder {
		if old.Order != expectedOrder {
			return Event{}, ErrConflict
		}
		order = lesson.Order
	}

	payload = reconcileVideoState(oldPayload, payload)

	_, err = tx.Exec(ctx, `
        UPDATE lessons
        SET title = $2, "order" = $3, is_preview = $4, updated_at = $5
        WHERE id = $1
    `, lesson.ID, lesson.Title, order, lesson.IsPreview, lesson.UpdatedAt)
	if err != nil {
		return Event{}, fmt.Errorf("update lesson: %w", err)
	}

	if err := updatePayload(ctx, tx, lesson.ID, payload); err != nil {
		return Event{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Event{}, fmt.Errorf("commit update lesson: %w", err)
	}

	return eventFor(lesson.ID, payload, orphanedKeys(oldPayload, payload)), nil
}

// ConvertKind migrates a lesson to a different variant while preserving its
// identity, module and order. The new payload row is written and the tag
// swapped before the old payload row is deleted, all inside one transaction,
// so a failure at any point leaves the previous variant intact.
func (r *PostgresLessonRepository) ConvertKind(ctx context.Context, lesson models.Lesson, payload content.Payload) (Event, error) {
	if lesson.Kind != payload.Kind() {
		return Event{}, fmt.Errorf("convert lesson %s: payload kind %s does not match target kind %s", lesson.ID, payload.Kind(), lesson.Kind)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("begin convert lesson: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	old, err := lockLesson(ctx, tx, lesson.ID)
	if err != nil {
		return Event{}, err
	}
	if old.Kind == lesson.Kind {
		return Event{}, ErrConflict
	}

	oldPayload, err := scanPayload(ctx, tx, lesson.ID, old.Kind)
	if err != nil {
		return Event{}, err
	}

	if err := insertPayload(ctx, tx, lesson.ID, payload); err != nil {
		return Event{}, err
	}

	_, err = tx.Exec(ctx, `
        UPDATE lessons
        SET kind = $2, title = $3, "order" = $4, is_preview = $5, updated_at = $6
        WHERE id = $1
    `, lesson.ID, lesson.Kind, lesson.Title, lesson.Order, lesson.IsPreview, lesson.UpdatedAt)
	if err != nil {
		return Event{}, fmt.Errorf("swap lesson kind: %w", err)
	}

	if err := deletePayloadRow(ctx, tx, lesson.ID, old.Kind); err != nil {
		return Event{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Event{}, fmt.Errorf("commit convert lesson: %w", err)
	}

	return eventFor(lesson.ID, payload, oldPayload.BlobKeys()), nil
}

// Delete removes a lesson; the payload row goes with it through the cascade.
// Blobs owned by the payload are reported for best-effort cleanup.
func (r *PostgresLessonRepository) Delete(ctx context.Context, id string) (Event, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("begin delete lesson: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	old, err := lockLesson(ctx, tx, id)
	if err != nil {
		return Event{}, err
	}

	oldPayload, err := scanPayload(ctx, tx, id, old.Kind)
	if err != nil {
		return Event{}, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id); err != nil {
		return Event{}, fmt.Errorf("delete lesson: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Event{}, fmt.Errorf("commit delete lesson: %w", err)
	}

	return Event{OrphanedBlobs: oldPayload.BlobKeys()}, nil
}

// ClaimProcessing transitions a pending video to PROCESSING and hands its
// source key to the worker. Only one concurrent claim can succeed; a lesson
// already processing or in a terminal state is not claimable.
func (r *PostgresLessonRepository) ClaimProcessing(ctx context.Context, lessonID string) (string, bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE lesson_video
        SET status = $2, failure_reason = '', updated_at = $3
        WHERE lesson_id = $1 AND status = $4 AND source_key <> ''
        RETURNING source_key
    `, lessonID, content.StatusProcessing, time.Now().UTC(), content.StatusPending)

	var sourceKey string
	if err := row.Scan(&sourceKey); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("claim transcode: %w", err)
	}

	return sourceKey, true, nil
}

// MarkCompleted records the published playlist for a finished transcode.
func (r *PostgresLessonRepository) MarkCompleted(ctx context.Context, lessonID, playlistKey string, durationSeconds int) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE lesson_video
        SET status = $2, playlist_key = $3, duration_seconds = $4, failure_reason = '', updated_at = $5
        WHERE lesson_id = $1 AND status = $6
    `, lessonID, content.StatusCompleted, playlistKey, durationSeconds, time.Now().UTC(), content.StatusProcessing)
	if err != nil {
		return fmt.Errorf("mark transcode completed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkFailed records a terminal failure with its diagnostic reason. The guard
// on PROCESSING keeps a stale worker from clobbering a fresh upload that
// already reset the lesson to PENDING.
func (r *PostgresLessonRepository) MarkFailed(ctx context.Context, lessonID, reason string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE lesson_video
        SET status = $2, failure_reason = $3, updated_at = $4
        WHERE lesson_id = $1 AND status = $5
    `, lessonID, content.StatusFailed, reason, time.Now().UTC(), content.StatusProcessing)
	if err != nil {
		return fmt.Errorf("mark transcode failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func lockLesson(ctx context.Context, q querier, id string) (models.Lesson, error) {
	row := q.QueryRow(ctx, `
        SELECT id, module_id, title, "order", is_preview, kind, created_at, updated_at
        FROM lessons
        WHERE id = $1
        FOR UPDATE
    `, id)
	return scanLessonRow(row)
}

func scanLesson(ctx context.Context, q querier, id string) (models.Lesson, error) {
	row := q.QueryRow(ctx, `
        SELECT id, module_id, title, "order", is_preview, kind, created_at, updated_at
        FROM lessons
        WHERE id = $1
    `, id)
	return scanLessonRow(row)
}

func scanLessonRow(row pgx.Row) (models.Lesson, error) {
	var lesson models.Lesson
	if err := row.Scan(&lesson.ID, &lesson.ModuleID, &lesson.Title, &lesson.Order, &lesson.IsPreview, &lesson.Kind, &lesson.CreatedAt, &lesson.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Lesson{}, ErrNotFound
		}
		return models.Lesson{}, fmt.Errorf("scan lesson: %w", err)
	}
	return lesson, nil
}

func eventFor(lessonID string, payload content.Payload, orphans []string) Event {
	ev := Event{OrphanedBlobs: orphans}
	if video, ok := payload.(content.VideoPayload); ok {
		if video.SourceKey != "" && (video.Status == "" || video.Status == content.StatusPending) {
			ev.TranscodeLessonID = lessonID
		}
	}
	return ev
}

// reconcileVideoState keeps worker-recorded processing state authoritative
// during generic updates. The caller's snapshot may predate a transition the
// pipeline committed in the meantime; only a fresh source upload resets the
// derived fields, otherwise status, playlist and duration stay as the workers
// left them.
func reconcileVideoState(oldPayload, next content.Payload) content.Payload {
	old, ok := oldPayload.(content.VideoPayload)
	if !ok {
		return next
	}
	p, ok := next.(content.VideoPayload)
	if !ok {
		return next
	}

	if p.SourceKey != "" && p.SourceKey != old.SourceKey {
		return p
	}

	p.SourceKey = old.SourceKey
	p.PlaylistKey = old.PlaylistKey
	p.DurationSeconds = old.DurationSeconds
	p.Status = old.Status
	p.FailureReason = old.FailureReason
	return p
}

// orphanedKeys lists blobs referenced by the old payload but not the new one.
func orphanedKeys(oldPayload, newPayload content.Payload) []string {
	kept := make(map[string]struct{})
	for _, key := range newPayload.BlobKeys() {
		kept[key] = struct{}{}
	}

	var orphans []string
	for _, key := range oldPayload.BlobKeys() {
		if _, ok := kept[key]; !ok {
			orphans = append(orphans, key)
		}
	}
	return orphans
}

var _ LessonRepository = (*PostgresLessonRepository)(nil)
var _ transcode.StatusStore = (*PostgresLessonRepository)(nil)

func insertPayload(ctx context.Context, q querier, lessonID string, payload content.Payload) error {
	switch p := payload.(type) {
	case content.VideoPayload:
		status := p.Status
		if status == "" {
			status = content.StatusPending
		}
		_, err := q.Exec(ctx, `
            INSERT INTO lesson_video (lesson_id, source_key, playlist_key, duration_seconds, status, failure_reason, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
        `, lessonID, p.SourceKey, p.PlaylistKey, p.DurationSeconds, status, p.FailureReason, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("insert video payload: %w", err)
		}
	case content.DocumentPayload:
		_, err := q.Exec(ctx, `
            INSERT INTO lesson_document (lesson_id, file_key, file_type, file_size)
            VALUES ($1, $2, $3, $4)
        `, lessonID, p.FileKey, p.FileType, p.FileSize)
		if err != nil {
			return fmt.Errorf("insert document payload: %w", err)
		}
	case content.QuizPayload:
		questions, err := json.Marshal(p.Questions)
		if err != nil {
			return fmt.Errorf("encode quiz questions: %w", err)
		}
		if _, err := q.Exec(ctx, `
            INSERT INTO lesson_quiz (lesson_id, passing_score, time_limit_minutes, questions)
            VALUES ($1, $2, $3, $4)
        `, lessonID, p.PassingScore, p.TimeLimitMinutes, questions); err != nil {
			return fmt.Errorf("insert quiz payload: %w", err)
		}
	case content.HTMLPayload:
		_, err := q.Exec(ctx, `
            INSERT INTO lesson_html (lesson_id, body)
            VALUES ($1, $2)
        `, lessonID, p.Body)
		if err != nil {
			return fmt.Errorf("insert html payload: %w", err)
		}
	case content.LivePayload:
		_, err := q.Exec(ctx, `
            INSERT INTO lesson_live (lesson_id, starts_at, ends_at, meeting_url, recording_url)
            VALUES ($1, $2, $3, $4, $5)
        `, lessonID, p.StartsAt, p.EndsAt, p.MeetingURL, p.RecordingURL)
		if err != nil {
			return fmt.Errorf("insert live payload: %w", err)
		}
	case content.AssignmentPayload:
		_, err := q.Exec(ctx, `
            INSERT INTO lesson_assignment (lesson_id, due_at, points, submission_required)
            VALUES ($1, $2, $3, $4)
        `, lessonID, p.DueAt, p.Points, p.SubmissionRequired)
		if err != nil {
			return fmt.Errorf("insert assignment payload: %w", err)
		}
	default:
		return fmt.Errorf("insert payload: unhandled kind %s", payload.Kind())
	}
	return nil
}

func updatePayload(ctx context.Context, q querier, lessonID string, payload content.Payload) error {
	var (
		tag pgconn.CommandTag
		err error
	)

	switch p := payload.(type) {
	case content.VideoPayload:
		status := p.Status
		if status == "" {
			status = content.StatusPending
		}
		tag, err = q.Exec(ctx, `
            UPDATE lesson_video
            SET source_key = $2, playlist_key = $3, duration_seconds = $4, status = $5, failure_reason = $6, updated_at = $7
            WHERE lesson_id = $1
        `, lessonID, p.SourceKey, p.PlaylistKey, p.DurationSeconds, status, p.FailureReason, time.Now().UTC())
	case content.DocumentPayload:
		tag, err = q.Exec(ctx, `
            UPDATE lesson_document
            SET file_key = $2, file_type = $3, file_size = $4
            WHERE lesson_id = $1
        `, lessonID, p.FileKey, p.FileType, p.FileSize)
	case content.QuizPayload:
		questions, encErr := json.Marshal(p.Questions)
		if encErr != nil {
			return fmt.Errorf("encode quiz questions: %w", encErr)
		}
		tag, err = q.Exec(ctx, `
            UPDATE lesson_quiz
            SET passing_score = $2, time_limit_minutes = $3, questions = $4
            WHERE lesson_id = $1
        `, lessonID, p.PassingScore, p.TimeLimitMinutes, questions)
	case content.HTMLPayload:
		tag, err = q.Exec(ctx, `
            UPDATE lesson_html
            SET body = $2
            WHERE lesson_id = $1
        `, lessonID, p.Body)
	case content.LivePayload:
		tag, err = q.Exec(ctx, `
            UPDATE lesson_live
            SET starts_at = $2, ends_at = $3, meeting_url = $4, recording_url = $5
            WHERE lesson_id = $1
        `, lessonID, p.StartsAt, p.EndsAt, p.MeetingURL, p.RecordingURL)
	case content.AssignmentPayload:
		tag, err = q.Exec(ctx, `
            UPDATE lesson_assignment
            SET due_at = $2, points = $3, submission_required = $4
            WHERE lesson_id = $1
        `, lessonID, p.DueAt, p.Points, p.SubmissionRequired)
	default:
		return fmt.Errorf("update payload: unhandled kind %s", payload.Kind())
	}

	if err != nil {
		return fmt.Errorf("update %s payload: %w", payload.Kind(), err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPayload(ctx context.Context, q querier, lessonID string, kind content.Kind) (content.Payload, error) {
	switch kind {
	case content.KindVideo:
		var p content.VideoPayload
		row := q.QueryRow(ctx, `
            SELECT source_key, playlist_key, duration_seconds, status, failure_reason
            FROM lesson_video
            WHERE lesson_id = $1
        `, lessonID)
		if err := row.Scan(&p.SourceKey, &p.PlaylistKey, &p.DurationSeconds, &p.Status, &p.FailureReason); err != nil {
			return nil, payloadScanError(kind, err)
		}
		return p, nil
	case content.KindDocument:
		var p content.DocumentPayload
		row := q.QueryRow(ctx, `
            SELECT file_key, file_type, file_size
            FROM lesson_document
            WHERE lesson_id = $1
        `, lessonID)
		if err := row.Scan(&p.FileKey, &p.FileType, &p.FileSize); err != nil {
			return nil, payloadScanError(kind, err)
		}
		return p, nil
	case content.KindQuiz:
		var (
			p         content.QuizPayload
			questions []byte
		)
		row := q.QueryRow(ctx, `
            SELECT passing_score, time_limit_minutes, questions
            FROM lesson_quiz
            WHERE lesson_id = $1
        `, lessonID)
		if err := row.Scan(&p.PassingScore, &p.TimeLimitMinutes, &questions); err != nil {
			return nil, payloadScanError(kind, err)
		}
		if len(questions) > 0 {
			if err := json.Unmarshal(questions, &p.Questions); err != nil {
				return nil, fmt.Errorf("decode quiz questions: %w", err)
			}
		}
		return p, nil
	case content.KindHTML:
		var p content.HTMLPayload
		row := q.QueryRow(ctx, `
            SELECT body
            FROM lesson_html
            WHERE lesson_id = $1
        `, lessonID)
		if err := row.Scan(&p.Body); err != nil {
			return nil, payloadScanError(kind, err)
		}
		return p, nil
	case content.KindLive:
		var p content.LivePayload
		row := q.QueryRow(ctx, `
            SELECT starts_at, ends_at, meeting_url, recording_url
            FROM lesson_live
            WHERE lesson_id = $1
        `, lessonID)
		if err := row.Scan(&p.StartsAt, &p.EndsAt, &p.MeetingURL, &p.RecordingURL); err != nil {
			return nil, payloadScanError(kind, err)
		}
		return p, nil
	case content.KindAssignment:
		var p content.AssignmentPayload
		row := q.QueryRow(ctx, `
            SELECT due_at, points, submission_required
            FROM lesson_assignment
            WHERE lesson_id = $1
        `, lessonID)
		if err := row.Scan(&p.DueAt, &p.Points, &p.SubmissionRequired); err != nil {
			return nil, payloadScanError(kind, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("scan payload: unhandled kind %s", kind)
	}
}

var payloadTables = map[content.Kind]string{
	content.KindVideo:      "lesson_video",
	content.KindDocument:   "lesson_document",
	content.KindQuiz:       "lesson_quiz",
	content.KindHTML:       "lesson_html",
	content.KindLive:       "lesson_live",
	content.KindAssignment: "lesson_assignment",
}

func deletePayloadRow(ctx context.Context, q querier, lessonID string, kind content.Kind) error {
	table, ok := payloadTables[kind]
	if !ok {
		return fmt.Errorf("delete payload: unhandled kind %s", kind)
	}

	tag, err := q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE lesson_id = $1`, table), lessonID)
	if err != nil {
		return fmt.Errorf("delete %s payload: %w", kind, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func payloadScanError(kind content.Kind, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		// A lesson whose tag points at a missing payload row violates the
		// one-payload invariant; surface it loudly rather than as not-found.
		return fmt.Errorf("lesson tagged %s has no payload row: %w", kind, ErrNotFound)
	}
	return fmt.Errorf("scan %s payload: %w", kind, err)
}
