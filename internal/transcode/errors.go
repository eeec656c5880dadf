package transcode

import "errors"

var (
	// ErrTranscoderUnavailable indicates the ffmpeg transcoder is not configured.
	ErrTranscoderUnavailable = errors.New("transcoder unavailable")
	// ErrPipelineClosed indicates the pipeline no longer accepts submissions.
	ErrPipelineClosed = errors.New("transcode pipeline closed")
)
