// Command bot runs the message analyzer bot: Telegram long polling, voice
// transcription and AI-backed analysis, plus an ops HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fairyhunter13/tg-insight-bot/internal/adapter/ai/openrouter"
	"github.com/fairyhunter13/tg-insight-bot/internal/adapter/httpserver"
	"github.com/fairyhunter13/tg-insight-bot/internal/adapter/observability"
	"github.com/fairyhunter13/tg-insight-bot/internal/adapter/stt/whisperapi"
	"github.com/fairyhunter13/tg-insight-bot/internal/adapter/telegram"
	"github.com/fairyhunter13/tg-insight-bot/internal/adapter/transcode/ffmpeg"
	"github.com/fairyhunter13/tg-insight-bot/internal/config"
	"github.com/fairyhunter13/tg-insight-bot/internal/service/cache"
	"github.com/fairyhunter13/tg-insight-bot/internal/service/ratelimiter"
	"github.com/fairyhunter13/tg-insight-bot/internal/service/transcribe"
	"github.com/fairyhunter13/tg-insight-bot/internal/usecase"
	"github.com/fairyhunter13/tg-insight-bot/pkg/audiox"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bot stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("bot stopped")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ops := httpserver.New(cfg)
	go func() {
		logger.Info("ops server listening", slog.String("addr", ops.Addr))
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server failed", slog.Any("error", err))
		}
	}()
	defer func() {
		if err := httpserver.Shutdown(ops, 5*time.Second); err != nil {
			logger.Warn("ops server shutdown failed", slog.Any("error", err))
		}
	}()

	limiter := ratelimiter.New(cfg.RateLimitWindow, cfg.RateLimitMax, cfg.FailureCooldown)
	results := cache.New(cfg.CacheSize)

	aiClient := openrouter.New(cfg, logger)
	analyzer := openrouter.NewAnalyzer(aiClient, cfg)

	splitOpts := audiox.DefaultSplitOptions()
	splitOpts.SilenceThresholdDB = cfg.SilenceThresholdDB
	splitOpts.MinSilence = cfg.MinSilence
	splitOpts.ChunkLen = cfg.AudioChunkLen
	splitOpts.MaxUnsplit = cfg.AudioSplitThreshold

	transcriber := transcribe.New(whisperapi.New(cfg), cfg.STTLanguage, splitOpts, logger)
	transcoder := ffmpeg.New(cfg.FFmpegPath, cfg.TranscodeTimeout)

	tgClient := telegram.NewClient(cfg.TelegramBaseURL, cfg.TelegramBotToken, cfg.TelegramPollTimeout)

	dispatcher := usecase.NewDispatcher(cfg, limiter, results, analyzer,
		transcoder, transcriber, tgClient, logger)

	bot := telegram.NewBot(tgClient, dispatcher, limiter, results, cfg.TelegramPollTimeout, logger)

	logger.Info("bot starting", slog.String("env", cfg.AppEnv))
	return bot.Run(ctx)
}
