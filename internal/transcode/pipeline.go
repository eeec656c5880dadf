package transcode

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/akademi/lms-backend/internal/logging"
)

// StatusStore persists transcode state transitions for video lessons.
// ClaimProcessing moves PENDING to PROCESSING and reports whether this
// worker won the claim; completion and failure are terminal.
type StatusStore interface {
	ClaimProcessing(ctx context.Context, lessonID string) (sourceKey string, claimed bool, err error)
	MarkCompleted(ctx context.Context, lessonID, playlistKey string, durationSeconds int) error
	MarkFailed(ctx context.Context, lessonID, reason string) error
}

// BlobStore is the slice of storage the pipeline needs: reading raw uploads
// and publishing generated artifacts.
type BlobStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// PipelineConfig controls the concurrency characteristics of the pipeline.
type PipelineConfig struct {
	QueueSize int
	Workers   int
	// MediaRoot prefixes published artifact keys.
	MediaRoot string
}

// Pipeline asynchronously turns raw video uploads into streamable HLS
// packages. Tasks carry only a lesson id; each execution re-reads current
// state, so duplicate submissions collapse into a single transcode.
type Pipeline struct {
	transcoder *FFmpeg
	storage    BlobStore
	status     StatusStore
	logger     *slog.Logger
	mediaRoot  string

	jobs   chan job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type job struct {
	lessonID string
}

// NewPipeline constructs a background worker pool that transcodes uploads.
func NewPipeline(transcoder *FFmpeg, storage BlobStore, status StatusStore, cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Pipeline{
		transcoder: transcoder,
		storage:    storage,
		status:     status,
		logger:     logger,
		mediaRoot:  cfg.MediaRoot,
		jobs:       make(chan job, cfg.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}

	return p
}

// Enqueue schedules a transcode for the lesson. Callers must enqueue only
// after the transaction that wrote the source reference has committed.
func (p *Pipeline) Enqueue(ctx context.Context, lessonID string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPipelineClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPipelineClosed
	case p.jobs <- job{lessonID: lessonID}:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.once.Do(func() {
		p.cancel()
		close(p.jobs)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			p.handleJob(j)
		}
	}
}

func (p *Pipeline) handleJob(j job) {
	if p.transcoder == nil || p.storage == nil || p.status == nil {
		p.logger.Error("transcode pipeline missing dependencies", "hasTranscoder", p.transcoder != nil, "hasStorage", p.storage != nil, "hasStatus", p.status != nil)
		return
	}

	jobCtx, cancel := context.WithTimeout(context.Background(), p.jobTimeout())
	defer cancel()

	sourceKey, claimed, err := p.status.ClaimProcessing(jobCtx, j.lessonID)
	if err != nil {
		p.logger.Error("claim transcode", "lessonId", j.lessonID, "error", err)
		return
	}
	if !claimed {
		// Another execution owns this lesson or it already reached a
		// terminal state; at-least-once delivery makes this routine.
		p.logger.Info("transcode claim skipped", "lessonId", j.lessonID)
		return
	}

	// Whatever happens past the claim, the lesson must not stay in
	// PROCESSING forever.
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("transcode panicked", "lessonId", j.lessonID, "panic", rec)
			p.recordFailure(j.lessonID, fmt.Sprintf("internal fault: %v", rec))
		}
	}()

	ctx, span := logging.StartSpan(logging.WithLogger(jobCtx, p.logger), "transcode")
	defer span.End()

	playlistKey, duration, err := p.transcodeLesson(ctx, j.lessonID, sourceKey)
	if err != nil {
		p.logger.Error("transcode failed", "lessonId", j.lessonID, "sourceKey", sourceKey, "error", err)
		p.recordFailure(j.lessonID, err.Error())
		return
	}

	if err := p.recordSuccess(j.lessonID, playlistKey, duration); err != nil {
		p.logger.Error("mark transcode completed", "lessonId", j.lessonID, "error", err)
		p.recordFailure(j.lessonID, "failed to record completed transcode")
	}
}

func (p *Pipeline) transcodeLesson(ctx context.Context, lessonID, sourceKey string) (string, int, error) {
	workDir, err := os.MkdirTemp("", "lms-transcode-*")
	if err != nil {
		return "", 0, fmt.Errorf("create work dir: %w", err)
	}

	// Partial output is kept for inspection on failure; only a successful
	// run cleans up after itself.
	cleanup := true
	defer func() {
		if cleanup {
			os.RemoveAll(workDir)
		} else {
			p.logger.Warn("keeping partial transcode output", "lessonId", lessonID, "dir", workDir)
		}
	}()

	localSource := filepath.Join(workDir, filepath.Base(sourceKey))
	if err := p.download(ctx, sourceKey, localSource); err != nil {
		return "", 0, err
	}

	outDir := filepath.Join(workDir, "hls")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create output dir: %w", err)
	}

	if _, err := p.transcoder.TranscodeHLS(ctx, localSource, outDir); err != nil {
		cleanup = false
		return "", 0, err
	}

	duration, err := p.transcoder.ProbeDuration(ctx, localSource)
	if err != nil {
		p.logger.Warn("probe duration failed", "lessonId", lessonID, "error", err)
		duration = 0
	}

	prefix := PlaylistPrefix(p.mediaRoot, lessonID)
	if err := p.publish(ctx, outDir, prefix); err != nil {
		cleanup = false
		return "", 0, err
	}

	return path.Join(prefix, "index.m3u8"), duration, nil
}

func (p *Pipeline) download(ctx context.Context, sourceKey, dst string) error {
	src, err := p.storage.Open(ctx, sourceKey)
	if err != nil {
		return fmt.Errorf("open source %s: %w", sourceKey, err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create local source: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("download source %s: %w", sourceKey, err)
	}
	return nil
}

// publish uploads every generated file (playlist and segments) under the
// per-lesson artifact prefix.
func (p *Pipeline) publish(ctx context.Context, outDir, prefix string) error {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return fmt.Errorf("read output dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		f, err := os.Open(filepath.Join(outDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("open artifact %s: %w", entry.Name(), err)
		}

		key := path.Join(prefix, entry.Name())
		_, err = p.storage.Save(ctx, key, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("publish artifact %s: %w", key, err)
		}
	}

	return nil
}

func (p *Pipeline) jobTimeout() time.Duration {
	base := 30 * time.Minute
	if p.transcoder != nil && p.transcoder.Timeout > 0 {
		base = p.transcoder.Timeout
	}
	// Headroom for download and publish around the transcode itself.
	return base + 10*time.Minute
}

func (p *Pipeline) recordFailure(lessonID, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.status.MarkFailed(ctx, lessonID, reason); err != nil {
		p.logger.Error("record transcode failure", "lessonId", lessonID, "error", err)
	}
}

func (p *Pipeline) recordSuccess(lessonID, playlistKey string, duration int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return p.status.MarkCompleted(ctx, lessonID, playlistKey, duration)
}

// PlaylistPrefix derives the published artifact location for a lesson:
// <media-root>/course_videos/hls/<lesson-id>. The lesson id keys the prefix
// so uploads that happen to share a filename never publish over each other.
func PlaylistPrefix(mediaRoot, lessonID string) string {
	return path.Join(mediaRoot, "course_videos", "hls", lessonID)
}
