// Package openrouter implements the AI analyzer on top of the OpenRouter
// chat-completions API, rotating across free-tier models between attempts.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fairyhunter13/tg-insight-bot/internal/adapter/observability"
	"github.com/fairyhunter13/tg-insight-bot/internal/config"
	"github.com/fairyhunter13/tg-insight-bot/internal/domain"
)

const systemPrompt = "Ты помощник, который анализирует сообщения на русском языке. " +
	"Твоя задача: кратко сформулировать основную мысль сообщения и предложить готовый ответ, " +
	"который можно отправить собеседнику. Отвечай только на русском языке."

// minUsefulLen rejects degenerate completions like "Ок" or bare punctuation.
const minUsefulLen = 10

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("unexpected status %d", e.code) }

// Client talks to the OpenRouter chat-completions endpoint.
type Client struct {
	cfg config.Config
	hc  *http.Client
	log *slog.Logger

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// New builds a Client from configuration.
func New(cfg config.Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:   cfg,
		hc:    &http.Client{Timeout: cfg.ChatTimeout},
		log:   log,
		sleep: time.Sleep,
	}
}

// Complete sends the prompt through the model rotation until a usable
// completion comes back. Attempt i uses ChatModels[i % len]; between failed
// attempts the wait depends on the failure class. Exhaustion surfaces
// ErrAIUnavailable.
func (c *Client) Complete(ctx context.Context, userPrompt string) (string, error) {
	if len(c.cfg.ChatModels) == 0 {
		return "", fmt.Errorf("op=openrouter.Complete: %w: no models configured", domain.ErrAIUnavailable)
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.ChatMaxRetries; attempt++ {
		model := c.cfg.ChatModels[attempt%len(c.cfg.ChatModels)]
		start := time.Now()
		text, err := c.completeOnce(ctx, model, userPrompt)
		observability.AIRequestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
		if err == nil {
			observability.AIRequestsTotal.WithLabelValues(model, "ok").Inc()
			return text, nil
		}
		observability.AIRequestsTotal.WithLabelValues(model, "error").Inc()
		if ctx.Err() != nil {
			return "", fmt.Errorf("op=openrouter.Complete: %w", ctx.Err())
		}
		lastErr = err
		c.log.Warn("completion attempt failed",
			slog.String("model", model),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
		if attempt+1 < c.cfg.ChatMaxRetries {
			c.sleep(retryWait(err, attempt))
		}
	}
	return "", fmt.Errorf("op=openrouter.Complete: %w: %v", domain.ErrAIUnavailable, lastErr)
}

func (c *Client) completeOnce(ctx context.Context, model, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ChatTimeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   c.cfg.ChatMaxTokens,
		Temperature: c.cfg.ChatTemperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.OpenRouterBaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.OpenRouterAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &statusError{code: resp.StatusCode}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	text := strings.TrimSpace(cr.Choices[0].Message.Content)
	if err := validateCompletion(text); err != nil {
		return "", err
	}
	return text, nil
}

// validateCompletion rejects empty, too-short and non-Russian completions so
// the rotation moves on to the next model.
func validateCompletion(text string) error {
	if text == "" {
		return errors.New("empty completion")
	}
	if utf8.RuneCountInString(text) <= minUsefulLen {
		return errors.New("completion too short")
	}
	if !hasCyrillic(text) {
		return errors.New("completion has no cyrillic text")
	}
	return nil
}

func hasCyrillic(s string) bool {
	for _, r := range s {
		if r >= 0x0400 && r <= 0x04FF {
			return true
		}
	}
	return false
}

// retryWait maps the failure class to a pause before the next attempt:
// rate limiting backs off exponentially with a 30s cap, a missing model is
// retried almost immediately on the next model, timeouts get a medium pause.
func retryWait(err error, attempt int) time.Duration {
	var se *statusError
	switch {
	case errors.As(err, &se) && se.code == http.StatusTooManyRequests:
		wait := time.Duration(1<<uint(attempt)+5) * time.Second
		if wait > 30*time.Second {
			wait = 30 * time.Second
		}
		return wait
	case errors.As(err, &se) && se.code == http.StatusNotFound:
		return time.Second
	case errors.Is(err, context.DeadlineExceeded):
		return 5 * time.Second
	default:
		return 2 * time.Second
	}
}
