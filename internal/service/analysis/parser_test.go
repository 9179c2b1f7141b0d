package analysis

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func Test_Parse_LabeledLines(t *testing.T) {
	got := Parse("ОСНОВНАЯ МЫСЛЬ: Пользователь просит помощи.\nОТВЕТ: Конечно, помогу.")
	require.Equal(t, "Пользователь просит помощи.", got.MainIdea)
	require.Equal(t, "Конечно, помогу.", got.Answer)
}

func Test_Parse_LabelsOnSingleLine(t *testing.T) {
	got := Parse("ОСНОВНАЯ МЫСЛЬ: Всё хорошо. ОТВЕТ: Рад слышать.")
	require.Equal(t, "Всё хорошо.", got.MainIdea)
	require.Equal(t, "Рад слышать.", got.Answer)
}

func Test_Parse_EmptyInputNeverFails(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n"} {
		got := Parse(in)
		require.NotEmpty(t, got.MainIdea)
		require.NotEmpty(t, got.Answer)
	}
}

func Test_Parse_DoubleNewlineSplit(t *testing.T) {
	got := Parse("Суть сообщения здесь\n\nА вот и готовый ответ")
	require.Equal(t, "Суть сообщения здесь", got.MainIdea)
	require.Equal(t, "А вот и готовый ответ", got.Answer)
}

func Test_Parse_SentenceAllocation(t *testing.T) {
	got := Parse("Первое. Второе. Третье. Четвертое. Пятое. Шестое.")
	require.Equal(t, "Первое. Второе.", got.MainIdea)
	require.Equal(t, "Третье. Четвертое. Пятое.", got.Answer)
}

func Test_Parse_SingleSentenceGetsFillerAnswer(t *testing.T) {
	got := Parse("Бессвязный ответ без меток.")
	require.Equal(t, "Бессвязный ответ без меток.", got.MainIdea)
	require.NotEmpty(t, got.Answer)
}

func Test_Parse_GarbageAlwaysYieldsBothFields(t *testing.T) {
	got := Parse("@@@ ### $$$ %%%")
	require.NotEmpty(t, got.MainIdea)
	require.NotEmpty(t, got.Answer)
}

func Test_Parse_StripsNonCyrillic(t *testing.T) {
	got := Parse("ОСНОВНАЯ МЫСЛЬ: Привет hello 世界 мир!\nОТВЕТ: Да yes 123.")
	require.Equal(t, "Привет мир!", got.MainIdea)
	require.Equal(t, "Да 123.", got.Answer)
}

func Test_Parse_CollapsesWhitespaceAndResidualLabels(t *testing.T) {
	got := Parse("ОСНОВНАЯ МЫСЛЬ: Мысль   с    пробелами ОСНОВНАЯ МЫСЛЬ:\nОТВЕТ: Ответ.")
	require.Equal(t, "Мысль с пробелами", got.MainIdea)
}

func Test_Parse_TruncatesLongFields(t *testing.T) {
	long := strings.Repeat("слово ", 200)
	got := Parse("ОСНОВНАЯ МЫСЛЬ: " + long + "\nОТВЕТ: " + long)
	require.LessOrEqual(t, utf8.RuneCountInString(got.MainIdea), 500)
	require.LessOrEqual(t, utf8.RuneCountInString(got.Answer), 500)
	require.True(t, strings.HasSuffix(got.MainIdea, "..."))
}

func Test_Fallback_LongTextUsesFirstMiddleLastSentence(t *testing.T) {
	text := "Первое предложение. Второе предложение. Третье предложение. Четвертое предложение. Пятое предложение."
	out := Fallback(text)
	require.Contains(t, out, IdeaLabel)
	require.Contains(t, out, AnswerLabel)
	require.Contains(t, out, "Первое предложение.")
	require.Contains(t, out, "Пятое предложение.")

	got := Parse(out)
	require.NotEmpty(t, got.MainIdea)
	require.NotEmpty(t, got.Answer)
}

func Test_Fallback_KeywordSelection(t *testing.T) {
	mk := func(word string) string {
		return "Раз " + word + " два. Три. Четыре. Пять. Шесть."
	}
	require.Contains(t, Fallback(mk("проблема")), "непростая")
	require.Contains(t, Fallback(mk("вопрос")), "интересный вопрос")
	require.Contains(t, Fallback(mk("спасибо")), "Рад это слышать")
	require.Contains(t, Fallback(mk("погода")), "развернутое сообщение")
}

func Test_Fallback_ShortTextTruncatedPrefix(t *testing.T) {
	long := strings.Repeat("а", 300)
	out := Fallback(long)
	require.Contains(t, out, strings.Repeat("а", 200)+"...")
	require.Contains(t, out, "Давайте обсудим возможные варианты")
}
