package chat

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMessageShortPassThrough(t *testing.T) {
	parts := SplitMessage("hello there", 2000)
	require.Len(t, parts, 1)
	assert.Equal(t, "hello there", parts[0])
}

func TestSplitMessageAtWordBoundary(t *testing.T) {
	text := strings.Repeat("word ", 100) // 500字符
	parts := SplitMessage(text, 120)

	require.Greater(t, len(parts), 1)
	for _, part := range parts {
		assert.LessOrEqual(t, utf8.RuneCountInString(part), 120)
		// 不从词中间切开
		assert.True(t, strings.HasSuffix(part, "word"), "part %q", part)
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(parts, " ")))
}

func TestSplitMessageHardSplitsLongWord(t *testing.T) {
	text := strings.Repeat("a", 250)
	parts := SplitMessage(text, 100)

	require.Len(t, parts, 3)
	assert.Equal(t, 100, len(parts[0]))
	assert.Equal(t, 100, len(parts[1]))
	assert.Equal(t, 50, len(parts[2]))
}

func TestSplitMessageExactBoundary(t *testing.T) {
	text := strings.Repeat("b", 100)
	parts := SplitMessage(text, 100)
	require.Len(t, parts, 1)
	assert.Equal(t, text, parts[0])
}

func TestSplitMessageRuneSafe(t *testing.T) {
	// 多字节字符不被从中间切断
	text := strings.Repeat("游", 150)
	parts := SplitMessage(text, 100)

	require.Len(t, parts, 2)
	for _, part := range parts {
		assert.True(t, utf8.ValidString(part))
	}
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestSplitMessageZeroMax(t *testing.T) {
	parts := SplitMessage("anything", 0)
	require.Len(t, parts, 1)
	assert.Equal(t, "anything", parts[0])
}
