package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestHashEmbedder_Normalized(t *testing.T) {
	h := NewHashEmbedder(0)
	assert.Equal(t, DefaultHashDimensions, h.Dimensions())

	v, err := h.Embed(context.Background(), "Om Namah Shivaya")
	require.NoError(t, err)
	require.Len(t, v, DefaultHashDimensions)

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestHashEmbedder_SimilarTextScoresHigher(t *testing.T) {
	h := NewHashEmbedder(256)
	ctx := context.Background()

	vecs, err := h.EmbedBatch(ctx, []string{
		"Om is the primordial sound of the universe",
		"what is the primordial sound om",
		"chop the vegetables and boil the rice",
	})
	require.NoError(t, err)

	assert.Greater(t, cosine(vecs[0], vecs[1]), cosine(vecs[0], vecs[2]))
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	h := NewHashEmbedder(64)
	a, _ := h.Embed(context.Background(), "ॐ नमः शिवाय")
	b, _ := h.Embed(context.Background(), "ॐ नमः शिवाय")
	assert.Equal(t, a, b)

	empty, err := h.Embed(context.Background(), "  ...  ")
	require.NoError(t, err)
	assert.Len(t, empty, 64)
}
