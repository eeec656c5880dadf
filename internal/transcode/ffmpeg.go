package transcode

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CommandRunner executes external commands and returns combined output bytes.
type CommandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// FFmpeg produces HLS streaming packages by shelling out to the ffmpeg CLI.
// Output is a single rendition segmented for baseline device compatibility.
type FFmpeg struct {
	Binary         string
	ProbeBinary    string
	Run            CommandRunner
	Timeout        time.Duration
	SegmentSeconds int
}

// NewFFmpeg constructs a transcoder that shells out to ffmpeg.
func NewFFmpeg(binary string, timeout time.Duration, segmentSeconds int) *FFmpeg {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	if segmentSeconds <= 0 {
		segmentSeconds = 10
	}
	return &FFmpeg{
		Binary:         binary,
		ProbeBinary:    "ffprobe",
		Run:            defaultCommandRunner,
		Timeout:        timeout,
		SegmentSeconds: segmentSeconds,
	}
}

// TranscodeHLS converts the input file into a segmented HLS package inside
// outDir and returns the playlist path. The invocation runs under the
// configured wall-clock timeout; hitting it is reported like any other
// ffmpeg failure.
func (f *FFmpeg) TranscodeHLS(ctx context.Context, inputPath, outDir string) (string, error) {
	if f == nil {
		return "", ErrTranscoderUnavailable
	}
	if f.Run == nil {
		f.Run = defaultCommandRunner
	}

	execCtx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	playlistPath := filepath.Join(outDir, "index.m3u8")

	args := []string{
		"-i", inputPath,
		"-codec:v", "libx264",
		"-profile:v", "baseline",
		"-level", "3.0",
		"-codec:a", "aac",
		"-start_number", "0",
		"-hls_time", strconv.Itoa(f.SegmentSeconds),
		"-hls_list_size", "0",
		"-f", "hls",
		"-y",
		playlistPath,
	}

	out, err := f.Run(execCtx, f.Binary, args...)
	if err != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("ffmpeg timed out after %s", f.Timeout)
		}
		return "", fmt.Errorf("ffmpeg transcode: %w: %s", err, tailOf(out))
	}

	return playlistPath, nil
}

// ProbeDuration reports the media duration in whole seconds. A probe failure
// is not fatal to the pipeline; callers may treat zero as unknown.
func (f *FFmpeg) ProbeDuration(ctx context.Context, inputPath string) (int, error) {
	if f == nil || f.Run == nil {
		return 0, ErrTranscoderUnavailable
	}

	probe := f.ProbeBinary
	if strings.TrimSpace(probe) == "" {
		probe = "ffprobe"
	}

	out, err := f.Run(ctx, probe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration: %w", err)
	}

	return int(seconds), nil
}

func defaultCommandRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	return cmd.CombinedOutput()
}

// tailOf keeps the end of ffmpeg's output, where the actual error lives.
func tailOf(out []byte) string {
	const max = 512
	s := strings.TrimSpace(string(out))
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return s
}
