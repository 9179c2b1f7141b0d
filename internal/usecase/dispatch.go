// Package usecase contains the message analysis flows: rate limiting,
// caching, voice processing and the AI/fallback analysis pipeline.
package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/fairyhunter13/tg-insight-bot/internal/adapter/observability"
	"github.com/fairyhunter13/tg-insight-bot/internal/config"
	"github.com/fairyhunter13/tg-insight-bot/internal/domain"
	"github.com/fairyhunter13/tg-insight-bot/internal/service/analysis"
	"github.com/fairyhunter13/tg-insight-bot/internal/service/cache"
	"github.com/fairyhunter13/tg-insight-bot/internal/service/ratelimiter"
	"github.com/fairyhunter13/tg-insight-bot/pkg/textx"
)

// User-facing status messages.
const (
	msgRateLimited     = "⏳ Слишком много запросов. Подождите 2-3 минуты."
	msgAnalyzing       = "🔍 Анализирую сообщение..."
	msgAnalyzingLong   = "🔍 Анализирую длинное сообщение, это может занять больше времени..."
	msgProcessingVoice = "🎧 Обрабатываю голосовое сообщение..."
	msgProcessingLong  = "🎧 Обрабатываю длинное голосовое сообщение, это может занять пару минут..."
	msgCachedResult    = "♻️ Использую кэшированный результат"
	msgLocalFallback   = "⚠️ Использую локальный анализ (AI временно недоступен)"
	msgDownloadFailed  = "❌ Не удалось загрузить голосовое сообщение."
	msgTranscodeSlow   = "⏱ Обработка аудио заняла слишком много времени."
	msgTranscodeFailed = "❌ Не удалось обработать аудио."
	msgNoSpeech        = "🤷 Не удалось распознать речь в сообщении."
	msgRecognizedText  = "📝 Распознанный текст:"

	headerIdea   = "🎯 **Основная мысль:**"
	headerAnswer = "💬 **Готовый ответ для отправки:**"
)

// Transcriber converts a normalized WAV payload into text.
type Transcriber interface {
	Transcribe(ctx domain.Context, wav []byte) (string, error)
}

// Dispatcher runs the analysis flows for inbound messages.
type Dispatcher struct {
	cfg         config.Config
	limiter     *ratelimiter.Limiter
	cache       *cache.Cache
	ai          domain.AIAnalyzer
	transcoder  domain.Transcoder
	transcriber Transcriber
	transport   domain.Transport
	log         *slog.Logger

	// sleep paces multi-part replies; swapped out in tests.
	sleep func(time.Duration)
}

// NewDispatcher wires the analysis flows.
func NewDispatcher(
	cfg config.Config,
	limiter *ratelimiter.Limiter,
	c *cache.Cache,
	ai domain.AIAnalyzer,
	transcoder domain.Transcoder,
	transcriber Transcriber,
	transport domain.Transport,
	log *slog.Logger,
) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		cfg:         cfg,
		limiter:     limiter,
		cache:       c,
		ai:          ai,
		transcoder:  transcoder,
		transcriber: transcriber,
		transport:   transport,
		log:         log,
		sleep:       time.Sleep,
	}
}

// HandleText runs the analysis flow for a plain text message.
func (d *Dispatcher) HandleText(ctx domain.Context, msg domain.InboundMessage) error {
	if !d.allow(ctx, msg) {
		observability.MessagesTotal.WithLabelValues("text", "rate_limited").Inc()
		return nil
	}
	d.limiter.Record(msg.UserID)

	if err := d.analyze(ctx, msg, msg.Text); err != nil {
		observability.MessagesTotal.WithLabelValues("text", "error").Inc()
		return err
	}
	observability.MessagesTotal.WithLabelValues("text", "ok").Inc()
	return nil
}

// HandleVoice downloads, normalizes and transcribes a voice message, echoes
// the recognized text back, then runs the same analysis flow on it.
func (d *Dispatcher) HandleVoice(ctx domain.Context, msg domain.InboundMessage) error {
	if msg.Voice == nil {
		return fmt.Errorf("op=usecase.HandleVoice: %w: no voice payload", domain.ErrInvalidArgument)
	}
	if !d.allow(ctx, msg) {
		observability.MessagesTotal.WithLabelValues("voice", "rate_limited").Inc()
		return nil
	}
	d.limiter.Record(msg.UserID)
	ack := msgProcessingVoice
	if msg.Voice.Duration > 2*time.Minute {
		ack = msgProcessingLong
	}
	d.reply(ctx, msg.ChatID, ack)

	text, ok, err := d.recognizeVoice(ctx, msg)
	if err != nil || !ok {
		observability.MessagesTotal.WithLabelValues("voice", "error").Inc()
		return err
	}

	d.echoRecognized(ctx, msg.ChatID, text)

	if err := d.analyze(ctx, msg, text); err != nil {
		observability.MessagesTotal.WithLabelValues("voice", "error").Inc()
		return err
	}
	observability.MessagesTotal.WithLabelValues("voice", "ok").Inc()
	return nil
}

// allow applies the per-user rate limit, telling the user to wait when the
// quota is spent.
func (d *Dispatcher) allow(ctx domain.Context, msg domain.InboundMessage) bool {
	if d.limiter.Allow(msg.UserID) {
		return true
	}
	observability.RateLimitedTotal.Inc()
	d.reply(ctx, msg.ChatID, msgRateLimited)
	return false
}

// recognizeVoice returns the recognized text. ok=false with nil error means
// the user was already told why nothing could be recognized.
func (d *Dispatcher) recognizeVoice(ctx domain.Context, msg domain.InboundMessage) (string, bool, error) {
	data, err := d.transport.Download(ctx, msg.Voice.FileID)
	if err != nil {
		d.reply(ctx, msg.ChatID, msgDownloadFailed)
		return "", false, fmt.Errorf("op=usecase.recognizeVoice: %w", err)
	}

	ext := mimetype.Detect(data).Extension()
	if ext == "" {
		ext = ".oga"
	}
	inPath := filepath.Join(os.TempDir(), "voice-"+uuid.NewString()+ext)
	outPath := filepath.Join(os.TempDir(), "voice-"+uuid.NewString()+".wav")
	defer func() {
		_ = os.Remove(inPath)
		_ = os.Remove(outPath)
	}()

	if err := os.WriteFile(inPath, data, 0o600); err != nil {
		return "", false, fmt.Errorf("op=usecase.recognizeVoice: %w", err)
	}

	if err := d.transcoder.Transcode(ctx, inPath, outPath); err != nil {
		if errors.Is(err, domain.ErrTranscodeTimeout) {
			d.reply(ctx, msg.ChatID, msgTranscodeSlow)
		} else {
			d.reply(ctx, msg.ChatID, msgTranscodeFailed)
		}
		return "", false, fmt.Errorf("op=usecase.recognizeVoice: %w", err)
	}

	wavData, err := os.ReadFile(outPath)
	if err != nil {
		return "", false, fmt.Errorf("op=usecase.recognizeVoice: %w", err)
	}

	text, err := d.transcriber.Transcribe(ctx, wavData)
	if err != nil {
		if errors.Is(err, domain.ErrUnrecognized) {
			d.reply(ctx, msg.ChatID, msgNoSpeech)
			return "", false, nil
		}
		d.reply(ctx, msg.ChatID, msgNoSpeech)
		return "", false, fmt.Errorf("op=usecase.recognizeVoice: %w", err)
	}
	// A transcript this short is recognition noise, not speech.
	if utf8.RuneCountInString(text) < 5 {
		d.reply(ctx, msg.ChatID, msgNoSpeech)
		return "", false, fmt.Errorf("op=usecase.recognizeVoice: %w: transcript too short",
			domain.ErrRecognitionFailed)
	}
	return text, true, nil
}

// echoRecognized sends the transcription back, chunked so every part fits
// the transport cap, with a short pause between parts.
func (d *Dispatcher) echoRecognized(ctx domain.Context, chatID int64, text string) {
	d.reply(ctx, chatID, msgRecognizedText)

	chunks := textx.Split(text, d.cfg.SplitMaxLen)
	for i, chunk := range chunks {
		if len(chunks) > 1 {
			chunk = fmt.Sprintf("Часть %d/%d:\n%s", i+1, len(chunks), chunk)
		}
		if r := []rune(chunk); len(r) > d.cfg.MaxMessageLen {
			chunk = string(r[:d.cfg.MaxMessageLen])
		}
		d.reply(ctx, chatID, chunk)
		if i+1 < len(chunks) {
			d.sleep(500 * time.Millisecond)
		}
	}
}

// analyze serves the result from cache when possible, otherwise runs the AI
// pipeline with the local fallback behind it. Only genuine AI results are
// cached; fallback output would shadow a later healthy answer.
func (d *Dispatcher) analyze(ctx domain.Context, msg domain.InboundMessage, text string) error {
	fp := cache.Fingerprint(text)
	if res, ok := d.cache.Get(fp); ok {
		observability.CacheHitsTotal.Inc()
		d.reply(ctx, msg.ChatID, msgCachedResult)
		return d.sendAnalysis(ctx, msg.ChatID, res)
	}
	observability.CacheMissesTotal.Inc()
	if utf8.RuneCountInString(text) > d.cfg.LongTextThreshold {
		d.reply(ctx, msg.ChatID, msgAnalyzingLong)
	} else {
		d.reply(ctx, msg.ChatID, msgAnalyzing)
	}

	raw, err := d.runAI(ctx, text)
	fromAI := err == nil
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("op=usecase.analyze: %w", ctx.Err())
		}
		d.log.Warn("ai analysis failed, using local fallback",
			slog.Int64("user_id", msg.UserID), slog.Any("error", err))
		d.limiter.RecordFailure(msg.UserID)
		observability.FallbackTotal.Inc()
		d.reply(ctx, msg.ChatID, msgLocalFallback)
		raw = analysis.Fallback(text)
	}

	res := analysis.Parse(raw)
	if fromAI {
		d.cache.Put(fp, res)
	}
	return d.sendAnalysis(ctx, msg.ChatID, res)
}

func (d *Dispatcher) runAI(ctx domain.Context, text string) (string, error) {
	if utf8.RuneCountInString(text) > d.cfg.LongTextThreshold {
		return d.ai.AnalyzeLong(ctx, text)
	}
	return d.ai.Analyze(ctx, text)
}

func (d *Dispatcher) sendAnalysis(ctx domain.Context, chatID int64, res domain.Analysis) error {
	if err := d.transport.Reply(ctx, chatID, headerIdea+"\n"+res.MainIdea); err != nil {
		return fmt.Errorf("op=usecase.sendAnalysis: %w", err)
	}
	if err := d.transport.Reply(ctx, chatID, headerAnswer); err != nil {
		return fmt.Errorf("op=usecase.sendAnalysis: %w", err)
	}
	if err := d.transport.Reply(ctx, chatID, res.Answer); err != nil {
		return fmt.Errorf("op=usecase.sendAnalysis: %w", err)
	}
	return nil
}

// reply sends a status message, logging delivery failures instead of
// aborting the flow.
func (d *Dispatcher) reply(ctx domain.Context, chatID int64, text string) {
	if err := d.transport.Reply(ctx, chatID, text); err != nil {
		d.log.Warn("reply delivery failed",
			slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}
