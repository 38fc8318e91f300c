package entities

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrievalContext_SourcesFirstAppearance(t *testing.T) {
	rc := RetrievalContext{Chunks: []RetrievedChunk{
		{Text: "a", SourceID: "s2", Score: 0.9},
		{Text: "b", SourceID: "s1", Score: 0.8},
		{Text: "c", SourceID: "s2", Score: 0.7},
		{Text: "d", SourceID: "", Score: 0.6},
		{Text: "e", SourceID: "s3", Score: 0.5},
	}}

	assert.Equal(t, []string{"s2", "s1", "", "s3"}, rc.Sources())
}

func TestRetrievalContext_SourcesKeepsOneEmptyID(t *testing.T) {
	rc := RetrievalContext{Chunks: []RetrievedChunk{
		{Text: "a", SourceID: ""},
		{Text: "b", SourceID: "gita"},
		{Text: "c", SourceID: ""},
	}}

	assert.Equal(t, []string{"", "gita"}, rc.Sources())
}

func TestRetrievalContext_EmptySourcesIsNotNil(t *testing.T) {
	rc := RetrievalContext{}

	sources := rc.Sources()
	require.NotNil(t, sources)
	assert.Empty(t, sources)
	assert.True(t, rc.Empty())
	assert.Zero(t, rc.BestScore())
}

func TestRetrievalContext_BestScore(t *testing.T) {
	rc := RetrievalContext{Chunks: []RetrievedChunk{
		{Score: -0.2}, {Score: 0.4}, {Score: 0.1},
	}}
	assert.InDelta(t, 0.4, rc.BestScore(), 1e-9)

	negative := RetrievalContext{Chunks: []RetrievedChunk{{Score: -0.5}, {Score: -0.3}}}
	assert.InDelta(t, -0.3, negative.BestScore(), 1e-9)
}

func TestAnswerChunk_Constructors(t *testing.T) {
	tok := TokenChunk("Om")
	assert.Equal(t, ChunkToken, tok.Kind)
	assert.False(t, tok.IsTerminal())

	done := DoneChunk(nil)
	assert.True(t, done.IsTerminal())
	assert.NotNil(t, done.Sources)

	failed := ErrorChunk("boom")
	assert.True(t, failed.IsTerminal())
	assert.Equal(t, "boom", failed.Error)
}

func TestError_CodeThroughWrapping(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewError(ErrGenerationFailed, "provider unavailable").WithCause(cause)
	wrapped := fmt.Errorf("answer: %w", err)

	assert.True(t, IsCode(wrapped, ErrGenerationFailed))
	assert.False(t, IsCode(wrapped, ErrInvalidInput))
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, err.Error(), "GENERATION_FAILED")
	assert.Equal(t, ErrorCode(""), CodeOf(context.Canceled))
	assert.False(t, IsCode(nil, ErrInvalidInput))
}
