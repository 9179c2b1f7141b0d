package textx

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func squash(s string) string { return strings.Join(strings.Fields(s), " ") }

func Test_Split_ShortInputReturnedAsIs(t *testing.T) {
	s := "Привет. Как дела?"
	require.Equal(t, []string{s}, Split(s, 100))
}

func Test_Split_PrefersSentenceBoundaries(t *testing.T) {
	s := strings.Repeat("Это предложение номер один. ", 10)
	chunks := Split(s, 60)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, utf8.RuneCountInString(c), 60)
		require.True(t, strings.HasSuffix(c, "."), "chunk should end on a sentence boundary: %q", c)
	}
	require.Equal(t, squash(s), squash(strings.Join(chunks, " ")))
}

func Test_Split_WordFallbackForOversizedSentence(t *testing.T) {
	s := strings.Repeat("слово ", 50) // one long "sentence", no terminators
	chunks := Split(s, 30)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, utf8.RuneCountInString(c), 30)
	}
	require.Equal(t, squash(s), squash(strings.Join(chunks, " ")))
}

func Test_Split_HardCutForPathologicalToken(t *testing.T) {
	s := strings.Repeat("ы", 95)
	chunks := Split(s, 30)
	require.Equal(t, 4, len(chunks))
	for _, c := range chunks {
		require.LessOrEqual(t, utf8.RuneCountInString(c), 30)
	}
	require.Equal(t, s, strings.Join(chunks, ""))
}

func Test_Split_MixedSentencesAndLongTail(t *testing.T) {
	s := "Короткое. " + strings.Repeat("оченьдлинноеслово ", 20) + "Конец!"
	chunks := Split(s, 50)
	for _, c := range chunks {
		require.LessOrEqual(t, utf8.RuneCountInString(c), 50)
	}
	require.Equal(t, squash(s), squash(strings.Join(chunks, " ")))
}

func Test_Truncate(t *testing.T) {
	require.Equal(t, "абв", Truncate("абв", 10))
	long := strings.Repeat("д", 600)
	got := Truncate(long, 500)
	require.Equal(t, 500, utf8.RuneCountInString(got))
	require.True(t, strings.HasSuffix(got, "..."))
}

func Test_SanitizeText(t *testing.T) {
	require.Equal(t, "привет мир", SanitizeText("  привет\x00 мир\x07  "))
}
