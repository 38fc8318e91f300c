package usecases

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

func TestComposePrompt_FillsContextSection(t *testing.T) {
	rc := entities.RetrievalContext{Chunks: []entities.RetrievedChunk{
		{Text: "first", SourceID: "a"},
		{Text: "second", SourceID: "b"},
	}}

	env := ComposePrompt("", rc, "q?")

	assert.True(t, strings.HasSuffix(env.SystemPrompt, "Scripture Context:\nfirst\n\n---\n\nsecond"))
	assert.NotContains(t, env.SystemPrompt, "{context}")
	assert.NotContains(t, env.SystemPrompt, FallbackContext)
	assert.Equal(t, "q?", env.UserQuery)
}

func TestComposePrompt_FallbackWhenEmpty(t *testing.T) {
	env := ComposePrompt("", entities.RetrievalContext{}, "q?")
	assert.True(t, strings.HasSuffix(env.SystemPrompt, FallbackContext))
	assert.Contains(t, FallbackContext, "humbly")
}

func TestComposePrompt_PersonaWithoutPlaceholder(t *testing.T) {
	rc := entities.RetrievalContext{Chunks: []entities.RetrievedChunk{{Text: "ctx"}}}
	env := ComposePrompt("Be brief.", rc, "q")
	assert.Equal(t, "Be brief.\n\nContext:\nctx", env.SystemPrompt)
}

func TestContextPreview(t *testing.T) {
	assert.Equal(t, "", ContextPreview("abc", 0))
	assert.Equal(t, "abc", ContextPreview("abc", 3))
	assert.Equal(t, "ab...", ContextPreview("abc", 2))
	// multi-byte runes are never split
	assert.Equal(t, "ॐन...", ContextPreview("ॐनमः", 2))
}

func TestScoreGuard(t *testing.T) {
	g := NewScoreGuard(0.5)

	_, rejected := g.Check("q", entities.RetrievalContext{})
	assert.False(t, rejected)

	_, rejected = g.Check("q", entities.RetrievalContext{Chunks: []entities.RetrievedChunk{{Score: 0.7}}})
	assert.False(t, rejected)

	reply, rejected := g.Check("q", entities.RetrievalContext{Chunks: []entities.RetrievedChunk{{Score: 0.2}, {Score: 0.4}}})
	assert.True(t, rejected)
	assert.Equal(t, OffTopicReply, reply)
}
