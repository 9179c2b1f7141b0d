package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/tg-insight-bot/internal/domain"
	"github.com/fairyhunter13/tg-insight-bot/internal/service/cache"
	"github.com/fairyhunter13/tg-insight-bot/internal/service/ratelimiter"
)

const (
	startText = "Привет! Отправьте мне текстовое или голосовое сообщение, " +
		"и я выделю основную мысль и предложу готовый ответ.\n\n" +
		"Команды: /help /status /clear_cache /reset_limits"
	helpText = "Как пользоваться ботом:\n" +
		"1. Отправьте текст или голосовое сообщение.\n" +
		"2. Я проанализирую его и пришлю основную мысль и готовый ответ.\n\n" +
		"/status - лимиты и состояние кэша\n" +
		"/clear_cache - очистить кэш результатов\n" +
		"/reset_limits - сбросить ваши лимиты"
)

// Dispatcher handles analyzable user messages. Implementations send their
// own replies; the returned error is for logging only.
type Dispatcher interface {
	HandleText(ctx domain.Context, msg domain.InboundMessage) error
	HandleVoice(ctx domain.Context, msg domain.InboundMessage) error
}

// Bot runs the long-polling loop and routes updates to commands or the
// dispatcher.
type Bot struct {
	client      *Client
	dispatcher  Dispatcher
	limiter     *ratelimiter.Limiter
	cache       *cache.Cache
	pollTimeout time.Duration
	log         *slog.Logger
}

// NewBot wires the transport loop.
func NewBot(client *Client, d Dispatcher, l *ratelimiter.Limiter, c *cache.Cache,
	pollTimeout time.Duration, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{
		client:      client,
		dispatcher:  d,
		limiter:     l,
		cache:       c,
		pollTimeout: pollTimeout,
		log:         log,
	}
}

// Run polls for updates until the context is canceled. Poll failures
// reconnect with exponential backoff; a successful poll resets it.
func (b *Bot) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	var offset int64
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		updates, err := b.client.getUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			wait := bo.NextBackOff()
			b.log.Warn("poll failed, reconnecting",
				slog.Any("error", err), slog.Duration("wait", wait))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		bo.Reset()

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message == nil || u.Message.From == nil {
				continue
			}
			go b.handle(ctx, u.Message)
		}
	}
}

func (b *Bot) handle(ctx context.Context, m *message) {
	msg := domain.InboundMessage{
		UserID: m.From.ID,
		ChatID: m.Chat.ID,
		Text:   m.Text,
	}
	if m.Voice != nil {
		msg.Voice = &domain.VoicePayload{
			FileID:   m.Voice.FileID,
			Duration: time.Duration(m.Voice.Duration) * time.Second,
		}
	}

	log := b.log.With(slog.Int64("user_id", msg.UserID), slog.Int64("chat_id", msg.ChatID))

	var err error
	switch {
	case strings.HasPrefix(msg.Text, "/"):
		err = b.handleCommand(ctx, msg)
	case msg.Voice != nil:
		err = b.dispatcher.HandleVoice(ctx, msg)
	case strings.TrimSpace(msg.Text) != "":
		err = b.dispatcher.HandleText(ctx, msg)
	default:
		return
	}
	if err != nil {
		log.Error("message handling failed", slog.Any("error", err))
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg domain.InboundMessage) error {
	cmd := strings.ToLower(strings.Fields(msg.Text)[0])
	// Commands may arrive as /cmd@botname in group chats.
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/start":
		return b.client.Reply(ctx, msg.ChatID, startText)
	case "/help":
		return b.client.Reply(ctx, msg.ChatID, helpText)
	case "/status":
		return b.client.Reply(ctx, msg.ChatID, b.statusText(msg.UserID))
	case "/clear_cache":
		b.cache.Clear()
		return b.client.Reply(ctx, msg.ChatID, "🧹 Кэш результатов очищен.")
	case "/reset_limits":
		b.limiter.Reset(msg.UserID)
		return b.client.Reply(ctx, msg.ChatID, "✅ Ваши лимиты сброшены.")
	default:
		return b.client.Reply(ctx, msg.ChatID,
			"Неизвестная команда. Отправьте /help для списка команд.")
	}
}

func (b *Bot) statusText(userID int64) string {
	st := b.limiter.Status(userID)
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Статус\n\nЗапросов в текущем окне: %d\nДоступно запросов: %d\n",
		st.Recent, st.Remaining)
	if st.CooldownRemaining > 0 {
		fmt.Fprintf(&sb, "Пауза после сбоя: еще %d сек.\n",
			int(st.CooldownRemaining/time.Second))
	}
	fmt.Fprintf(&sb, "Записей в кэше: %d", b.cache.Len())
	return sb.String()
}
