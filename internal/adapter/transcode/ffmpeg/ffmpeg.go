// Package ffmpeg normalizes incoming voice audio into mono 16 kHz PCM WAV by
// shelling out to the ffmpeg binary.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/fairyhunter13/tg-insight-bot/internal/adapter/observability"
	"github.com/fairyhunter13/tg-insight-bot/internal/domain"
)

// Transcoder runs ffmpeg with a fixed normalization filter chain: volume
// boost plus a 200-3000 Hz band pass that strips rumble and hiss before
// recognition.
type Transcoder struct {
	bin     string
	timeout time.Duration
}

// New builds a Transcoder using the given ffmpeg binary path.
func New(bin string, timeout time.Duration) *Transcoder {
	return &Transcoder{bin: bin, timeout: timeout}
}

var _ domain.Transcoder = (*Transcoder)(nil)

// Args returns the ffmpeg invocation for the given input and output paths.
func Args(inputPath, outputPath string) []string {
	return []string{
		"-i", inputPath,
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", "16000",
		"-af", "volume=1.5,highpass=f=200,lowpass=f=3000",
		"-y", outputPath,
	}
}

// Transcode converts the file at inputPath into mono 16 kHz PCM WAV at
// outputPath. Wall-clock overrun maps to ErrTranscodeTimeout, any other
// ffmpeg failure to ErrTranscodeFailed with a stderr snippet.
func (t *Transcoder) Transcode(ctx domain.Context, inputPath, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.bin, Args(inputPath, outputPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			observability.TranscodeTotal.WithLabelValues("timeout").Inc()
			return fmt.Errorf("op=ffmpeg.Transcode: %w", domain.ErrTranscodeTimeout)
		}
		observability.TranscodeTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("op=ffmpeg.Transcode: %w: %s",
			domain.ErrTranscodeFailed, stderrSnippet(stderr.String()))
	}
	observability.TranscodeTotal.WithLabelValues("ok").Inc()
	return nil
}

// stderrSnippet keeps the tail of ffmpeg's stderr, which is where the actual
// failure reason ends up.
func stderrSnippet(s string) string {
	s = strings.TrimSpace(s)
	const max = 300
	if len(s) > max {
		s = s[len(s)-max:]
	}
	if s == "" {
		return "no stderr output"
	}
	return s
}
