// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"tg-insight-bot"`

	TelegramBotToken    string        `env:"TELEGRAM_BOT_TOKEN"`
	TelegramBaseURL     string        `env:"TELEGRAM_BASE_URL" envDefault:"https://api.telegram.org"`
	TelegramPollTimeout time.Duration `env:"TELEGRAM_POLL_TIMEOUT" envDefault:"30s"`

	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	// ChatModels is the ordered rotation of completion models; attempt i uses
	// ChatModels[i % len].
	ChatModels      []string      `env:"CHAT_MODELS" envSeparator:"," envDefault:"qwen/qwen-2.5-72b-instruct:free,deepseek/deepseek-r1:free,google/gemma-7b-it:free,meta-llama/llama-3.1-8b-instruct:free"`
	ChatMaxTokens   int           `env:"CHAT_MAX_TOKENS" envDefault:"800"`
	ChatTemperature float64       `env:"CHAT_TEMPERATURE" envDefault:"0.7"`
	ChatMaxRetries  int           `env:"CHAT_MAX_RETRIES" envDefault:"3"`
	ChatTimeout     time.Duration `env:"CHAT_TIMEOUT" envDefault:"60s"`

	STTAPIKey   string        `env:"STT_API_KEY"`
	STTBaseURL  string        `env:"STT_BASE_URL" envDefault:"https://api.openai.com/v1"`
	STTModel    string        `env:"STT_MODEL" envDefault:"whisper-1"`
	STTLanguage string        `env:"STT_LANGUAGE" envDefault:"ru"`
	STTTimeout  time.Duration `env:"STT_TIMEOUT" envDefault:"60s"`

	FFmpegPath       string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	TranscodeTimeout time.Duration `env:"TRANSCODE_TIMEOUT" envDefault:"60s"`

	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"120s"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"3"`
	FailureCooldown time.Duration `env:"FAILURE_COOLDOWN" envDefault:"300s"`

	CacheSize int `env:"CACHE_SIZE" envDefault:"50"`

	// Transport hard cap and the default split target kept safely below it.
	MaxMessageLen int `env:"MAX_MESSAGE_LEN" envDefault:"4096"`
	SplitMaxLen   int `env:"SPLIT_MAX_LEN" envDefault:"3900"`

	// Long-text analysis heuristics. The excerpt and chunking constants came
	// out of tuning, not derivation; they are knobs on purpose.
	LongTextThreshold int `env:"LONG_TEXT_THRESHOLD" envDefault:"4000"`
	ExcerptHead       int `env:"EXCERPT_HEAD" envDefault:"1500"`
	ExcerptMiddle     int `env:"EXCERPT_MIDDLE" envDefault:"1000"`
	ExcerptTail       int `env:"EXCERPT_TAIL" envDefault:"1500"`
	LongChunkSize     int `env:"LONG_CHUNK_SIZE" envDefault:"3500"`
	LongMaxChunks     int `env:"LONG_MAX_CHUNKS" envDefault:"3"`

	SilenceThresholdDB  float64       `env:"SILENCE_THRESHOLD_DB" envDefault:"-40"`
	MinSilence          time.Duration `env:"MIN_SILENCE" envDefault:"1s"`
	AudioChunkLen       time.Duration `env:"AUDIO_CHUNK_LEN" envDefault:"30s"`
	AudioSplitThreshold time.Duration `env:"AUDIO_SPLIT_THRESHOLD" envDefault:"45s"`

	OpsPort       int `env:"OPS_PORT" envDefault:"9090"`
	OpsRatePerMin int `env:"OPS_RATE_PER_MIN" envDefault:"60"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }
