// Package vectordb holds the vector backends behind ports.VectorStore:
// an in-process map, a SQLite file, and Qdrant and Milvus over gRPC.
// Every backend reports cosine similarity, higher meaning closer.
package vectordb

import (
	"math"
	"sort"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// topK sorts results by descending score, ties by source then index, and
// keeps the first k.
func topK(results []entities.QueryResult, k int) []entities.QueryResult {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Chunk.SourceID != b.Chunk.SourceID {
			return a.Chunk.SourceID < b.Chunk.SourceID
		}
		return a.Chunk.Index < b.Chunk.Index
	})
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results
}
