// Package telegram implements the bot transport over the Telegram Bot API
// using long polling.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fairyhunter13/tg-insight-bot/internal/domain"
)

// maxSendLen is the Bot API hard cap on message text length.
const maxSendLen = 4096

// API wire types, trimmed to the fields the bot reads.
type (
	update struct {
		UpdateID int64    `json:"update_id"`
		Message  *message `json:"message"`
	}
	message struct {
		MessageID int64  `json:"message_id"`
		From      *user  `json:"from"`
		Chat      chat   `json:"chat"`
		Text      string `json:"text"`
		Voice     *voice `json:"voice"`
	}
	user struct {
		ID int64 `json:"id"`
	}
	chat struct {
		ID int64 `json:"id"`
	}
	voice struct {
		FileID   string `json:"file_id"`
		Duration int    `json:"duration"`
	}
	file struct {
		FileID   string `json:"file_id"`
		FilePath string `json:"file_path"`
	}
	apiResponse struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
)

// Client is a minimal Bot API client.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
}

// NewClient builds a Client against the given API base URL.
func NewClient(baseURL, token string, pollTimeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		// Long polling holds the connection open for pollTimeout; leave
		// headroom on top of it.
		hc: &http.Client{Timeout: pollTimeout + 10*time.Second},
	}
}

var _ domain.Transport = (*Client)(nil)

func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("op=telegram.call: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("op=telegram.call: %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var ar apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return fmt.Errorf("op=telegram.call: %s: %w", method, err)
	}
	if !ar.OK {
		return fmt.Errorf("op=telegram.call: %s: api error: %s", method, ar.Description)
	}
	if out != nil {
		if err := json.Unmarshal(ar.Result, out); err != nil {
			return fmt.Errorf("op=telegram.call: %s: %w", method, err)
		}
	}
	return nil
}

func (c *Client) getUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(int(timeout/time.Second)))
	params.Set("allowed_updates", `["message"]`)

	var updates []update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// Reply sends text to the chat, hard-truncating anything over the API cap.
// Callers split long content beforehand; the cut here is a last resort.
func (c *Client) Reply(ctx domain.Context, chatID int64, text string) error {
	if r := []rune(text); len(r) > maxSendLen {
		text = string(r[:maxSendLen])
	}
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("text", text)
	return c.call(ctx, "sendMessage", params, nil)
}

// Download fetches a file payload by its Bot API file id.
func (c *Client) Download(ctx domain.Context, fileID string) ([]byte, error) {
	params := url.Values{}
	params.Set("file_id", fileID)
	var f file
	if err := c.call(ctx, "getFile", params, &f); err != nil {
		return nil, err
	}

	dl := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, f.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dl, nil)
	if err != nil {
		return nil, fmt.Errorf("op=telegram.Download: %w", err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("op=telegram.Download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("op=telegram.Download: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("op=telegram.Download: %w", err)
	}
	return data, nil
}
