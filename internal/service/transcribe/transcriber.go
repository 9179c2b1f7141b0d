// Package transcribe turns a normalized WAV payload into text, segmenting
// long recordings so each piece stays within what the recognition backend
// handles reliably.
package transcribe

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/fairyhunter13/tg-insight-bot/internal/domain"
	"github.com/fairyhunter13/tg-insight-bot/pkg/audiox"
)

// Service orchestrates segmentation and per-segment recognition.
type Service struct {
	rec  domain.Recognizer
	lang string
	opts audiox.SplitOptions
	log  *slog.Logger
}

// New builds a Service recognizing speech in the given language.
func New(rec domain.Recognizer, lang string, opts audiox.SplitOptions, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{rec: rec, lang: lang, opts: opts, log: log}
}

// Transcribe recognizes the WAV payload. Long recordings are split on
// silence and recognized segment by segment; a segment that fails is skipped
// rather than failing the whole recording. An undecodable payload falls back
// to whole-file recognition. Returns ErrUnrecognized when nothing usable
// comes back.
func (s *Service) Transcribe(ctx domain.Context, wavData []byte) (string, error) {
	clip, err := audiox.DecodeWAV(bytes.NewReader(wavData))
	if err != nil {
		s.log.Warn("wav decode failed, recognizing whole file", slog.Any("error", err))
		return s.rec.Recognize(ctx, wavData, s.lang)
	}

	chunks := audiox.SplitOnSilence(clip, s.opts)
	if len(chunks) <= 1 {
		return s.rec.Recognize(ctx, wavData, s.lang)
	}

	s.log.Info("recognizing segmented audio",
		slog.Int("segments", len(chunks)),
		slog.Duration("duration", clip.Duration()))

	var parts []string
	for i, chunk := range chunks {
		data, err := encodeChunk(chunk)
		if err != nil {
			s.log.Warn("segment encode failed, skipping",
				slog.Int("segment", i), slog.Any("error", err))
			continue
		}
		text, err := s.rec.Recognize(ctx, data, s.lang)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			s.log.Warn("segment recognition failed, skipping",
				slog.Int("segment", i), slog.Any("error", err))
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}

	joined := strings.TrimSpace(strings.Join(parts, " "))
	if joined == "" {
		return "", fmt.Errorf("op=transcribe.Transcribe: %w", domain.ErrUnrecognized)
	}
	return joined, nil
}

// encodeChunk writes the clip through a temp file because the WAV encoder
// needs a seekable sink to patch the header on close.
func encodeChunk(c audiox.Clip) ([]byte, error) {
	path := filepath.Join(os.TempDir(), "chunk-"+uuid.NewString()+".wav")
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	if err := audiox.EncodeWAV(c, f); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}
