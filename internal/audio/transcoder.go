// Package audio converts uploaded browser recordings into a canonical
// archive format by shelling out to ffmpeg.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"
)

// Transcoder converts a recording file into MP3.
type Transcoder interface {
	ToMP3(ctx context.Context, srcPath, dstPath string) error
}

// FFmpegTranscoder runs the ffmpeg binary from PATH.
type FFmpegTranscoder struct {
	bin string
	log zerolog.Logger
}

// NewFFmpegTranscoder creates a transcoder using the given ffmpeg binary
// ("ffmpeg" when empty).
func NewFFmpegTranscoder(bin string, log zerolog.Logger) *FFmpegTranscoder {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpegTranscoder{
		bin: bin,
		log: log.With().Str("component", "transcoder").Logger(),
	}
}

// ToMP3 converts srcPath into a 128kbps MP3 at dstPath, dropping any video
// track the browser container may carry.
func (t *FFmpegTranscoder) ToMP3(ctx context.Context, srcPath, dstPath string) error {
	cmd := exec.CommandContext(ctx, t.bin,
		"-i", srcPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-b:a", "128k",
		"-y",
		dstPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.log.Error().
			Err(err).
			Str("src", srcPath).
			Str("stderr", stderr.String()).
			Msg("ffmpeg failed")
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}
