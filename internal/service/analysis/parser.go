// Package analysis turns raw model output into the two-field result shown to
// the user, and provides the rule-based fallback used when the AI backend is
// down.
package analysis

import (
	"regexp"
	"strings"

	"github.com/fairyhunter13/tg-insight-bot/internal/domain"
	"github.com/fairyhunter13/tg-insight-bot/pkg/textx"
)

// Labels the model is instructed to emit.
const (
	IdeaLabel   = "ОСНОВНАЯ МЫСЛЬ:"
	AnswerLabel = "ОТВЕТ:"
)

const (
	defaultIdeaEmptyInput   = "Не удалось проанализировать сообщение"
	defaultAnswerEmptyInput = "Попробуйте отправить сообщение еще раз"
	defaultIdea             = "Основная мысль не выделена"
	defaultAnswer           = "Не удалось сгенерировать ответ"

	fillerAnswerStory = "Интересная история! Расскажите больше подробностей."
	fillerAnswerPlain = "Понимаю вашу ситуацию. Давайте обсудим это подробнее."

	maxFieldLen = 500
)

var (
	// Cyrillic, digits, whitespace and a small punctuation set survive;
	// everything else (latin, CJK, emoji, markup) is stripped.
	disallowed = regexp.MustCompile(`[^\x{0400}-\x{04FF}\s.,!?\-:()\d]`)
	multispace = regexp.MustCompile(`\s+`)
)

// Parse extracts {main idea, answer} from raw model output. It never fails:
// layered extraction strategies run in order until one yields something, and
// post-processing substitutes fixed defaults for anything still empty.
func Parse(response string) domain.Analysis {
	response = strings.TrimSpace(response)
	if response == "" {
		return domain.Analysis{MainIdea: defaultIdeaEmptyInput, Answer: defaultAnswerEmptyInput}
	}

	idea, answer := extractLabeledLines(response)
	if answer == "" {
		if i, a, ok := extractByAnswerLabel(response); ok {
			idea, answer = i, a
		}
	}
	if idea == "" && answer == "" {
		idea, answer = extractHeuristic(response)
	}

	idea = cleanField(idea)
	answer = cleanField(answer)
	if idea == "" {
		idea = defaultIdea
	}
	if answer == "" {
		answer = defaultAnswer
	}
	return domain.Analysis{
		MainIdea: textx.Truncate(idea, maxFieldLen),
		Answer:   textx.Truncate(answer, maxFieldLen),
	}
}

// extractLabeledLines scans for lines carrying the literal labels.
func extractLabeledLines(response string) (idea, answer string) {
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, IdeaLabel):
			idea = strings.TrimSpace(strings.TrimPrefix(line, IdeaLabel))
		case strings.HasPrefix(line, AnswerLabel):
			answer = strings.TrimSpace(strings.TrimPrefix(line, AnswerLabel))
		}
	}
	return idea, answer
}

// extractByAnswerLabel handles both fields crammed into one line: everything
// after the single answer label is the answer, everything before (minus an
// optional idea label) is the idea.
func extractByAnswerLabel(response string) (idea, answer string, ok bool) {
	parts := strings.Split(response, AnswerLabel)
	if len(parts) != 2 {
		return "", "", false
	}
	head := parts[0]
	if i := strings.Index(head, IdeaLabel); i >= 0 {
		head = head[i+len(IdeaLabel):]
	}
	return strings.TrimSpace(head), strings.TrimSpace(parts[1]), true
}

// extractHeuristic splits unlabeled text: first on a blank line, then by
// sentence allocation (up to 2 for the idea, up to 3 for the answer), finally
// the whole text plus a generic filler.
func extractHeuristic(response string) (idea, answer string) {
	if parts := strings.Split(response, "\n\n"); len(parts) >= 2 {
		return parts[0], parts[1]
	}

	var sentences []string
	for _, s := range strings.Split(response, ".") {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) >= 2 {
		n := 2
		if len(sentences) < n {
			n = len(sentences)
		}
		idea = strings.Join(sentences[:n], ". ") + "."
		rest := sentences[n:]
		if len(rest) == 0 {
			return idea, fillerAnswerStory
		}
		m := 3
		if len(rest) < m {
			m = len(rest)
		}
		return idea, strings.Join(rest[:m], ". ") + "."
	}
	return response, fillerAnswerPlain
}

func cleanField(s string) string {
	s = disallowed.ReplaceAllString(s, "")
	s = multispace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	for _, label := range []string{IdeaLabel, AnswerLabel} {
		s = strings.TrimSpace(strings.ReplaceAll(s, label, ""))
	}
	return s
}
