package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/akademi/lms-backend/internal/config"
	"github.com/akademi/lms-backend/internal/db"
	"github.com/akademi/lms-backend/internal/handlers"
	"github.com/akademi/lms-backend/internal/lessons"
	"github.com/akademi/lms-backend/internal/middleware"
	"github.com/akademi/lms-backend/internal/repositories"
	"github.com/akademi/lms-backend/internal/storage"
	"github.com/akademi/lms-backend/internal/transcode"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers and returns the transcode pipeline so serve can drain it on
// shutdown.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, *transcode.Pipeline, error) {
	store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	lessonRepo := repositories.NewPostgresLessonRepository(pool)
	progressRepo := repositories.NewPostgresProgressRepository(pool)

	transcoder := transcode.NewFFmpeg(cfg.FFmpegPath, cfg.TranscodeTimeout, cfg.SegmentSeconds)
	pipeline := transcode.NewPipeline(transcoder, store, lessonRepo, transcode.PipelineConfig{
		QueueSize: cfg.QueueSize,
		Workers:   cfg.TranscodeWorkers,
		MediaRoot: cfg.MediaRoot,
	}, logger)

	cleaner := storage.NewCleaner(store, logger)
	service := lessons.NewService(lessonRepo, store, pipeline, cleaner, cfg.MediaRoot)

	deps := handlers.Dependencies{
		Lessons:  service,
		Progress: progressRepo,
		Limiter:  middleware.NewIPRateLimiter(30, time.Minute, 10, 5*time.Minute),
		Media:    store,
	}

	return deps, pipeline, nil
}
