// Package domain holds the core entities and ports of the analyzer bot.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrRateLimited       = errors.New("rate limited")
	ErrTranscodeFailed   = errors.New("transcode failed")
	ErrTranscodeTimeout  = errors.New("transcode timeout")
	ErrRecognitionFailed = errors.New("recognition failed")
	ErrUnrecognized      = errors.New("no speech recognized")
	ErrAIUnavailable     = errors.New("ai unavailable")
	ErrInternal          = errors.New("internal error")
)

// Analysis is the two-field result produced for every analyzed message.
// Invariants: both fields non-empty; each at most 500 runes.
type Analysis struct {
	MainIdea string
	Answer   string
}

// VoicePayload references a voice note held by the transport.
// Duration is the sender-declared length, not a measured one.
type VoicePayload struct {
	FileID   string
	Duration time.Duration
}

// InboundMessage is a transport-agnostic user message: either Text is
// non-empty or Voice is non-nil.
type InboundMessage struct {
	UserID int64
	ChatID int64
	Text   string
	Voice  *VoicePayload
}

// Ports

// AIAnalyzer produces the raw two-label analysis text for an input message.
// Implementations retry across models; exhaustion surfaces ErrAIUnavailable.
type AIAnalyzer interface {
	Analyze(ctx Context, text string) (string, error)
	AnalyzeLong(ctx Context, text string) (string, error)
}

// Recognizer converts a mono 16 kHz PCM WAV payload into text.
// No detected speech surfaces ErrUnrecognized.
type Recognizer interface {
	Recognize(ctx Context, wav []byte, lang string) (string, error)
}

// Transcoder normalizes raw audio at inputPath into mono 16 kHz PCM WAV at
// outputPath. Non-zero exit maps to ErrTranscodeFailed, wall-clock overrun to
// ErrTranscodeTimeout.
type Transcoder interface {
	Transcode(ctx Context, inputPath, outputPath string) error
}

// Transport delivers outbound replies and fetches voice payloads.
type Transport interface {
	Reply(ctx Context, chatID int64, text string) error
	Download(ctx Context, fileID string) ([]byte, error)
}

// Context is an alias to decouple ports from std context in signatures;
// adapters pass context.Context through unchanged.
type Context = context.Context
