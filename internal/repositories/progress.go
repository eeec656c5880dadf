package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/akademi/lms-backend/internal/db"
	"github.com/akademi/lms-backend/internal/models"
)

// PostgresProgressRepository provides PostgreSQL-backed persistence for
// per-user lesson progress.
type PostgresProgressRepository struct {
	pool db.Pool
}

// NewPostgresProgressRepository constructs a progress repository backed by PostgreSQL.
func NewPostgresProgressRepository(pool db.Pool) *PostgresProgressRepository {
	return &PostgresProgressRepository{pool: pool}
}

// Upsert writes the progress record for a (user, lesson) pair. Re-submitting
// the same pair updates the existing row in place; duplicates cannot occur.
func (r *PostgresProgressRepository) Upsert(ctx context.Context, progress models.LessonProgress) (models.LessonProgress, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.LessonProgress{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        INSERT INTO lesson_progress (user_id, lesson_id, is_completed, progress_percentage, last_position_seconds, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (user_id, lesson_id) DO UPDATE
        SET is_completed = EXCLUDED.is_completed,
            progress_percentage = EXCLUDED.progress_percentage,
            last_position_seconds = EXCLUDED.last_position_seconds,
            updated_at = EXCLUDED.updated_at
        RETURNING user_id, lesson_id, is_completed, progress_percentage, last_position_seconds, updated_at
    `, progress.UserID, progress.LessonID, progress.IsCompleted, progress.ProgressPercentage, progress.LastPositionSeconds, progress.UpdatedAt)

	var stored models.LessonProgress
	if err := row.Scan(&stored.UserID, &stored.LessonID, &stored.IsCompleted, &stored.ProgressPercentage, &stored.LastPositionSeconds, &stored.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.LessonProgress{}, ErrNotFound
		}
		return models.LessonProgress{}, fmt.Errorf("upsert lesson progress: %w", err)
	}

	return stored, nil
}

// Find fetches the progress record for a (user, lesson) pair.
func (r *PostgresProgressRepository) Find(ctx context.Context, userID, lessonID string) (models.LessonProgress, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.LessonProgress{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT user_id, lesson_id, is_completed, progress_percentage, last_position_seconds, updated_at
        FROM lesson_progress
        WHERE user_id = $1 AND lesson_id = $2
    `, userID, lessonID)

	var progress models.LessonProgress
	if err := row.Scan(&progress.UserID, &progress.LessonID, &progress.IsCompleted, &progress.ProgressPercentage, &progress.LastPositionSeconds, &progress.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.LessonProgress{}, ErrNotFound
		}
		return models.LessonProgress{}, fmt.Errorf("select lesson progress: %w", err)
	}

	return progress, nil
}

var _ ProgressRepository = (*PostgresProgressRepository)(nil)
