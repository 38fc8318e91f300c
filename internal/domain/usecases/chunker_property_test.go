package usecases

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func scriptureText(rt *rapid.T) string {
	words := rapid.SliceOfN(rapid.StringMatching(`[a-zA-Zāīū]{1,12}`), 1, 400).Draw(rt, "words")
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteString(rapid.SampledFrom([]string{" ", " ", " ", ". ", "\n", "\n\n", "! "}).Draw(rt, "sep"))
		}
		b.WriteString(w)
	}
	return b.String()
}

func TestProperty_ChunkText(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		text := scriptureText(rt)
		size := rapid.IntRange(20, 400).Draw(rt, "size")
		overlap := rapid.IntRange(0, size-1).Draw(rt, "overlap")

		chunks := ChunkText(text, size, overlap, 0)
		trimmed := strings.TrimSpace(text)
		require.NotEmpty(rt, chunks)

		for i, c := range chunks {
			assert.NotEmpty(rt, c, "chunk %d", i)
			assert.LessOrEqual(rt, utf8.RuneCountInString(c), size, "chunk %d", i)
			assert.Contains(rt, trimmed, c, "chunk %d", i)
		}
		assert.True(rt, strings.HasPrefix(trimmed, chunks[0]))
		assert.True(rt, strings.HasSuffix(trimmed, chunks[len(chunks)-1]))
	})
}

func TestProperty_ChunkText_NoOverlapPreservesWords(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		text := scriptureText(rt)
		size := rapid.IntRange(20, 400).Draw(rt, "size")

		chunks := ChunkText(text, size, 0, 0)
		assert.Equal(rt, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
	})
}
