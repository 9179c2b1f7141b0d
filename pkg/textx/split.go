package textx

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLen is the split target for outgoing messages; display contexts
// may pass a tighter limit (1500-2000).
const DefaultMaxLen = 3900

// sentence terminators with their trailing whitespace; the delimiter stays
// attached to the sentence it closes.
var sentenceDelim = regexp.MustCompile(`[.!?]+\s*`)

// Split breaks s into ordered chunks of at most max runes each, preferring
// sentence boundaries, then word boundaries, then raw rune cuts. Chunks are
// trimmed of surrounding whitespace. Concatenating the chunks reproduces the
// content of s up to that trimming.
func Split(s string, max int) []string {
	if max <= 0 {
		max = DefaultMaxLen
	}
	if utf8.RuneCountInString(s) <= max {
		return []string{s}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if c := strings.TrimSpace(cur.String()); c != "" {
			chunks = append(chunks, c)
		}
		cur.Reset()
		curLen = 0
	}

	for _, sent := range splitSentences(s) {
		n := utf8.RuneCountInString(sent)
		if n > max {
			// A single sentence over the limit: close the running chunk to
			// keep ordering, then pack the sentence word by word.
			flush()
			chunks = append(chunks, packWords(sent, max)...)
			continue
		}
		if curLen+n <= max {
			cur.WriteString(sent)
			curLen += n
			continue
		}
		flush()
		cur.WriteString(sent)
		curLen = n
	}
	flush()
	return chunks
}

// splitSentences cuts s into sentence-like units on [.!?]+ plus trailing
// whitespace, keeping each delimiter glued to its preceding unit.
func splitSentences(s string) []string {
	idx := sentenceDelim.FindAllStringIndex(s, -1)
	if len(idx) == 0 {
		return []string{s}
	}
	var units []string
	prev := 0
	for _, m := range idx {
		units = append(units, s[prev:m[1]])
		prev = m[1]
	}
	if prev < len(s) {
		units = append(units, s[prev:])
	}
	return units
}

// packWords greedily accumulates whitespace-separated words into chunks of at
// most max runes. A pathological single word longer than max is cut by raw
// rune slicing.
func packWords(s string, max int) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
		}
		cur.Reset()
		curLen = 0
	}

	for _, word := range strings.Fields(s) {
		n := utf8.RuneCountInString(word)
		if n > max {
			flush()
			r := []rune(word)
			for len(r) > max {
				chunks = append(chunks, string(r[:max]))
				r = r[max:]
			}
			cur.WriteString(string(r))
			curLen = len(r)
			continue
		}
		switch {
		case curLen == 0:
			cur.WriteString(word)
			curLen = n
		case curLen+n+1 <= max:
			cur.WriteByte(' ')
			cur.WriteString(word)
			curLen += n + 1
		default:
			flush()
			cur.WriteString(word)
			curLen = n
		}
	}
	flush()
	return chunks
}
