package vectordb

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
	"github.com/0xcro3dile/netra-go/internal/domain/ports"
)

// KnowledgeBase implements ports.KnowledgeStore on top of an embedder and a
// vector backend.
type KnowledgeBase struct {
	embedder   ports.EmbeddingService
	store      ports.VectorStore
	collection string
	logger     *zap.Logger
}

// NewKnowledgeBase wires an embedder to a vector backend. collection is
// only reported by Stats.
func NewKnowledgeBase(embedder ports.EmbeddingService, store ports.VectorStore, collection string, logger *zap.Logger) *KnowledgeBase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeBase{
		embedder:   embedder,
		store:      store,
		collection: collection,
		logger:     logger.With(zap.String("component", "knowledge")),
	}
}

// ChunkID names the i-th chunk of a source.
func ChunkID(sourceID string, i int) string {
	return sourceID + "#" + strconv.Itoa(i)
}

// Upsert replaces the chunks of sourceID.
func (kb *KnowledgeBase) Upsert(ctx context.Context, texts []string, sourceID string) (int, error) {
	if len(texts) == 0 {
		return 0, nil
	}

	vectors, err := kb.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
	}

	chunks := make([]entities.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = entities.Chunk{
			ID:        ChunkID(sourceID, i),
			SourceID:  sourceID,
			Content:   text,
			Index:     i,
			Embedding: vectors[i],
		}
	}

	if err := kb.store.Replace(ctx, sourceID, chunks); err != nil {
		return 0, fmt.Errorf("storing chunks: %w", err)
	}

	kb.logger.Debug("upserted source", zap.String("source", sourceID), zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// Query embeds text and returns up to k chunks, most relevant first. An
// empty collection answers without calling the embedder.
func (kb *KnowledgeBase) Query(ctx context.Context, text string, k int) ([]entities.RetrievedChunk, error) {
	if k <= 0 {
		return []entities.RetrievedChunk{}, nil
	}
	chunks, _, err := kb.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	if chunks == 0 {
		return []entities.RetrievedChunk{}, nil
	}
	vec, err := kb.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := kb.store.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}
	hits = topK(hits, k)

	out := make([]entities.RetrievedChunk, len(hits))
	for i, h := range hits {
		out[i] = entities.RetrievedChunk{
			Text:     h.Chunk.Content,
			SourceID: h.Chunk.SourceID,
			Score:    h.Score,
		}
	}
	return out, nil
}

func (kb *KnowledgeBase) Delete(ctx context.Context, sourceID string) error {
	return kb.store.Delete(ctx, sourceID)
}

// Stats reports collection totals.
func (kb *KnowledgeBase) Stats(ctx context.Context) (entities.StoreStats, error) {
	chunks, sources, err := kb.store.Count(ctx)
	if err != nil {
		return entities.StoreStats{}, fmt.Errorf("counting chunks: %w", err)
	}
	return entities.StoreStats{
		TotalChunks:    chunks,
		TotalSources:   sources,
		CollectionName: kb.collection,
	}, nil
}

func (kb *KnowledgeBase) Clear(ctx context.Context) error {
	return kb.store.Clear(ctx)
}
