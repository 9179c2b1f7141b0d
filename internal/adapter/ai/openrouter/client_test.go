package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/tg-insight-bot/internal/config"
	"github.com/fairyhunter13/tg-insight-bot/internal/domain"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		OpenRouterAPIKey:  "test-key",
		OpenRouterBaseURL: baseURL,
		ChatModels:        []string{"model-a", "model-b", "model-c"},
		ChatMaxTokens:     800,
		ChatMaxRetries:    3,
		ChatTimeout:       5 * time.Second,
		LongTextThreshold: 4000,
		ExcerptHead:       1500,
		ExcerptMiddle:     1000,
		ExcerptTail:       1500,
		LongChunkSize:     3500,
		LongMaxChunks:     3,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(testConfig(srv.URL), nil)
	var waits []time.Duration
	c.sleep = func(d time.Duration) { waits = append(waits, d) }
	return c, &waits
}

func completionJSON(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func Test_Complete_FirstAttemptSucceeds(t *testing.T) {
	c, waits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "model-a", req.Model)
		require.Len(t, req.Messages, 2)
		fmt.Fprint(w, completionJSON("ОСНОВНАЯ МЫСЛЬ: Всё понятно.\nОТВЕТ: Хорошо, договорились."))
	})

	out, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	require.Contains(t, out, "ОСНОВНАЯ МЫСЛЬ")
	require.Empty(t, *waits)
}

func Test_Complete_RotatesModelsOnFailure(t *testing.T) {
	var models []string
	c, waits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		models = append(models, req.Model)
		if len(models) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, completionJSON("Понятный русский ответ на сообщение."))
	})

	out, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Equal(t, []string{"model-a", "model-b"}, models)
	require.Equal(t, []time.Duration{2 * time.Second}, *waits)
}

func Test_Complete_RateLimitBackoffSchedule(t *testing.T) {
	c, waits := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Complete(context.Background(), "prompt")
	require.ErrorIs(t, err, domain.ErrAIUnavailable)
	require.Equal(t, []time.Duration{6 * time.Second, 7 * time.Second}, *waits)
}

func Test_Complete_MissingModelRetriedQuickly(t *testing.T) {
	calls := 0
	c, waits := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, completionJSON("Понятный русский ответ на сообщение."))
	})

	_, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, []time.Duration{time.Second}, *waits)
}

func Test_Complete_RejectsUnusableCompletions(t *testing.T) {
	responses := []string{"", "Ок.", "English only answer here, no target language."}
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, completionJSON(responses[calls]))
		calls++
	})

	_, err := c.Complete(context.Background(), "prompt")
	require.ErrorIs(t, err, domain.ErrAIUnavailable)
	require.Equal(t, 3, calls)
}

func Test_Complete_ExhaustionSurfacesUnavailable(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Complete(context.Background(), "prompt")
	require.ErrorIs(t, err, domain.ErrAIUnavailable)
}

func Test_Analyze_ShortTextSentVerbatim(t *testing.T) {
	var prompt string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompt = req.Messages[1].Content
		fmt.Fprint(w, completionJSON("ОСНОВНАЯ МЫСЛЬ: Суть.\nОТВЕТ: Ответ готов."))
	})
	a := NewAnalyzer(c, c.cfg)

	_, err := a.Analyze(context.Background(), "Короткое сообщение.")
	require.NoError(t, err)
	require.Contains(t, prompt, "Короткое сообщение.")
	require.NotContains(t, prompt, "пропущена средняя часть")
}

func Test_Analyze_LongTextExcerpted(t *testing.T) {
	var prompt string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompt = req.Messages[1].Content
		fmt.Fprint(w, completionJSON("ОСНОВНАЯ МЫСЛЬ: Суть.\nОТВЕТ: Ответ готов."))
	})
	a := NewAnalyzer(c, c.cfg)

	text := strings.Repeat("н", 2000) + strings.Repeat("с", 2000) + strings.Repeat("к", 2000)
	_, err := a.Analyze(context.Background(), text)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(prompt, "пропущена средняя часть"))
	require.Contains(t, prompt, strings.Repeat("н", 1500))
	require.Contains(t, prompt, strings.Repeat("к", 1500))
	require.Less(t, len([]rune(prompt)), 4800)
}

func Test_AnalyzeLong_ChunksThenSynthesizes(t *testing.T) {
	var prompts []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompts = append(prompts, req.Messages[1].Content)
		fmt.Fprint(w, completionJSON("ОСНОВНАЯ МЫСЛЬ: Часть разобрана.\nОТВЕТ: Понял вас."))
	})
	a := NewAnalyzer(c, c.cfg)

	out, err := a.AnalyzeLong(context.Background(), strings.Repeat("т", 8000))
	require.NoError(t, err)
	require.NotEmpty(t, out)
	// 8000 runes over 3500-rune chunks is 3 parts, plus one synthesis call.
	require.Len(t, prompts, 4)
	require.Contains(t, prompts[0], "Часть 1 из 3")
	require.Contains(t, prompts[3], "Объедини")
}

func Test_AnalyzeLong_TruncatesExcessChunks(t *testing.T) {
	var prompts []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompts = append(prompts, req.Messages[1].Content)
		fmt.Fprint(w, completionJSON("ОСНОВНАЯ МЫСЛЬ: Часть разобрана.\nОТВЕТ: Понял вас."))
	})
	a := NewAnalyzer(c, c.cfg)

	_, err := a.AnalyzeLong(context.Background(), strings.Repeat("т", 20000))
	require.NoError(t, err)
	require.Len(t, prompts, 4)
	require.Contains(t, prompts[3], "текст сокращен")
}

func Test_AnalyzeLong_FailedPartGetsPlaceholder(t *testing.T) {
	calls := 0
	cfg := testConfig("")
	cfg.ChatMaxRetries = 1
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if strings.Contains(req.Messages[1].Content, "Часть 2 из 3") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if strings.Contains(req.Messages[1].Content, "Объедини") {
			require.Contains(t, req.Messages[1].Content, "Не удалось проанализировать часть 2")
		}
		fmt.Fprint(w, completionJSON("ОСНОВНАЯ МЫСЛЬ: Часть разобрана.\nОТВЕТ: Понял вас."))
	}))
	defer srv.Close()
	cfg.OpenRouterBaseURL = srv.URL
	c := New(cfg, nil)
	c.sleep = func(time.Duration) {}
	a := NewAnalyzer(c, cfg)

	out, err := a.AnalyzeLong(context.Background(), strings.Repeat("т", 8000))
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Equal(t, 4, calls)
}
