// Package whisperapi implements speech recognition over an OpenAI-compatible
// audio transcription endpoint.
package whisperapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/fairyhunter13/tg-insight-bot/internal/adapter/observability"
	"github.com/fairyhunter13/tg-insight-bot/internal/config"
	"github.com/fairyhunter13/tg-insight-bot/internal/domain"
)

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Client talks to the transcription endpoint.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New builds a Client from configuration.
func New(cfg config.Config) *Client {
	return &Client{cfg: cfg, hc: &http.Client{Timeout: cfg.STTTimeout}}
}

var _ domain.Recognizer = (*Client)(nil)

// Recognize uploads the WAV payload and returns the recognized text.
// An empty transcription surfaces ErrUnrecognized.
func (c *Client) Recognize(ctx domain.Context, wav []byte, lang string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("op=whisperapi.Recognize: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("op=whisperapi.Recognize: %w", err)
	}
	_ = mw.WriteField("model", c.cfg.STTModel)
	if lang != "" {
		_ = mw.WriteField("language", lang)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("op=whisperapi.Recognize: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.STTBaseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("op=whisperapi.Recognize: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.STTAPIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.hc.Do(req)
	if err != nil {
		observability.STTRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("op=whisperapi.Recognize: %w: %v", domain.ErrRecognitionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		observability.STTRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("op=whisperapi.Recognize: %w: status %d: %s",
			domain.ErrRecognitionFailed, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		observability.STTRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("op=whisperapi.Recognize: %w: %v", domain.ErrRecognitionFailed, err)
	}

	text := strings.TrimSpace(tr.Text)
	if text == "" {
		observability.STTRequestsTotal.WithLabelValues("empty").Inc()
		return "", fmt.Errorf("op=whisperapi.Recognize: %w", domain.ErrUnrecognized)
	}
	observability.STTRequestsTotal.WithLabelValues("ok").Inc()
	return text, nil
}
