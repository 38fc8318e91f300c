package vectordb

import (
	"strings"
	"testing"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

func TestMilvusColumns(t *testing.T) {
	cols, err := milvusColumns([]entities.Chunk{
		{ID: "a", SourceID: "Gita", Content: "one", Index: 0, Embedding: []float32{1, 0}},
		{ID: "b", SourceID: "Gita", Content: "two", Index: 1, Embedding: []float32{0, 1}},
	})
	require.NoError(t, err)
	require.Len(t, cols, 5)

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name()
		assert.Equal(t, 2, c.Len(), c.Name())
	}
	assert.Equal(t, []string{"id", "embedding", "source_id", "content", "chunk_index"}, names)

	idx, ok := cols[4].(*column.ColumnInt64)
	require.True(t, ok)
	assert.Equal(t, []int64{0, 1}, idx.Data())
}

func TestMilvusColumns_Rejects(t *testing.T) {
	_, err := milvusColumns([]entities.Chunk{
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "b", Embedding: []float32{1}},
	})
	assert.ErrorContains(t, err, "dimension")

	_, err = milvusColumns([]entities.Chunk{
		{ID: "big", Content: strings.Repeat("x", milvusMaxContentLen+1), Embedding: []float32{1}},
	})
	assert.ErrorContains(t, err, "exceeds")
}

func TestSourceExpr(t *testing.T) {
	assert.Equal(t, `source_id == "Bhagavad Gita"`, sourceExpr("Bhagavad Gita"))
	assert.Equal(t, `source_id == "say \"Om\" \\ rest"`, sourceExpr(`say "Om" \ rest`))
	assert.Equal(t, `source_id == "Gita" && chunk_index >= 4`, staleExpr("Gita", 4))
}

func TestCountDistinct(t *testing.T) {
	assert.Equal(t, 2, countDistinct([]string{"a", "b", "a"}))
	assert.Zero(t, countDistinct(nil))
}
