package openrouter

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/tg-insight-bot/internal/config"
	"github.com/fairyhunter13/tg-insight-bot/internal/domain"
)

const elisionMarker = "\n\n... [пропущена средняя часть] ...\n\n"

const analyzeTemplate = `Проанализируй следующее сообщение и ответь строго в формате:
ОСНОВНАЯ МЫСЛЬ: [краткая суть сообщения в 1-2 предложениях]
ОТВЕТ: [готовый ответ собеседнику в 2-3 предложениях]

Сообщение:
%s`

const synthesizeTemplate = `Ниже даны результаты анализа частей одного длинного сообщения.
Объедини их в один итоговый результат строго в формате:
ОСНОВНАЯ МЫСЛЬ: [общая суть всего сообщения]
ОТВЕТ: [один готовый ответ собеседнику]

Результаты по частям:
%s`

// Analyzer implements domain.AIAnalyzer on the OpenRouter client.
type Analyzer struct {
	c   *Client
	cfg config.Config
}

// NewAnalyzer wraps a Client.
func NewAnalyzer(c *Client, cfg config.Config) *Analyzer {
	return &Analyzer{c: c, cfg: cfg}
}

var _ domain.AIAnalyzer = (*Analyzer)(nil)

// Analyze requests the two-label analysis for a message. Oversized input is
// reduced to a head, middle and tail excerpt so the prompt stays within what
// free-tier models accept.
func (a *Analyzer) Analyze(ctx domain.Context, text string) (string, error) {
	return a.c.Complete(ctx, fmt.Sprintf(analyzeTemplate, a.excerpt(text)))
}

// AnalyzeLong analyzes an oversized message part by part and then asks the
// model to synthesize the partial results. A failed part is represented by a
// placeholder so the synthesis still covers the rest; a failed synthesis
// degrades to the concatenated partial results, which remain parseable.
func (a *Analyzer) AnalyzeLong(ctx domain.Context, text string) (string, error) {
	if len([]rune(text)) <= a.cfg.LongTextThreshold {
		return a.Analyze(ctx, text)
	}
	chunks, truncated := chunkRunes(text, a.cfg.LongChunkSize, a.cfg.LongMaxChunks)

	results := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		prompt := fmt.Sprintf("Часть %d из %d.\n\n%s", i+1, len(chunks),
			fmt.Sprintf(analyzeTemplate, chunk))
		out, err := a.c.Complete(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return "", err
			}
			out = fmt.Sprintf("%s Не удалось проанализировать часть %d\n%s ",
				"ОСНОВНАЯ МЫСЛЬ:", i+1, "ОТВЕТ:")
		}
		results = append(results, out)
	}

	combined := strings.Join(results, "\n\n")
	if truncated {
		combined += "\n\n... [текст сокращен]"
	}
	if len(results) == 1 {
		return results[0], nil
	}

	final, err := a.c.Complete(ctx, fmt.Sprintf(synthesizeTemplate, combined))
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return combined, nil
	}
	return final, nil
}

// excerpt keeps short texts intact and reduces long ones to head, middle and
// tail slices with explicit elision markers.
func (a *Analyzer) excerpt(text string) string {
	r := []rune(text)
	if len(r) <= a.cfg.LongTextThreshold {
		return text
	}
	head := string(r[:a.cfg.ExcerptHead])
	mid := len(r) / 2
	half := a.cfg.ExcerptMiddle / 2
	middle := string(r[mid-half : mid+half])
	tail := string(r[len(r)-a.cfg.ExcerptTail:])
	return head + elisionMarker + middle + elisionMarker + tail
}

// chunkRunes slices text into fixed-size rune chunks, keeping at most maxChunks
// and reporting whether anything was dropped.
func chunkRunes(text string, size, maxChunks int) (chunks []string, truncated bool) {
	r := []rune(text)
	for start := 0; start < len(r); start += size {
		if len(chunks) == maxChunks {
			return chunks, true
		}
		end := start + size
		if end > len(r) {
			end = len(r)
		}
		chunks = append(chunks, string(r[start:end]))
	}
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	return chunks, false
}
