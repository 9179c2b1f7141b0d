package analysis

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed replies.yaml
var repliesYAML []byte

type replyRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Answer   string   `yaml:"answer"`
}

type replyTable struct {
	Rules        []replyRule `yaml:"rules"`
	Default      string      `yaml:"default"`
	ShortDefault string      `yaml:"short_default"`
}

var replies = mustLoadReplies()

func mustLoadReplies() replyTable {
	var t replyTable
	if err := yaml.Unmarshal(repliesYAML, &t); err != nil {
		panic(fmt.Sprintf("analysis: bad embedded replies.yaml: %v", err))
	}
	return t
}

// Fallback is the rule-based analyzer used when the AI backend is down. It
// emits the same labeled two-line format as the model so that Parse handles
// both paths identically, and it cannot fail.
func Fallback(text string) string {
	var sentences []string
	for _, s := range strings.Split(text, ".") {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}

	var idea, answer string
	if len(sentences) > 3 {
		idea = sentences[0] + ". " + sentences[len(sentences)/2] + ". " + sentences[len(sentences)-1] + "."
		answer = pickReply(strings.ToLower(text))
	} else {
		idea = text
		if utf8.RuneCountInString(text) > 200 {
			idea = string([]rune(text)[:200]) + "..."
		}
		answer = replies.ShortDefault
	}
	return fmt.Sprintf("%s %s\n%s %s", IdeaLabel, idea, AnswerLabel, answer)
}

func pickReply(lower string) string {
	for _, rule := range replies.Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Answer
			}
		}
	}
	return replies.Default
}
