package vectordb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/netra-go/internal/adapters/embedding"
	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedder offline")
}

func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedder offline")
}

// rejectingStore fails writes once armed.
type rejectingStore struct {
	*InMemoryStore
	reject bool
}

func (s *rejectingStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	if s.reject {
		return errors.New("disk full")
	}
	return s.InMemoryStore.Store(ctx, chunks)
}

func (s *rejectingStore) Replace(ctx context.Context, sourceID string, chunks []entities.Chunk) error {
	if s.reject {
		return errors.New("disk full")
	}
	return s.InMemoryStore.Replace(ctx, sourceID, chunks)
}

func newTestKnowledgeBase() *KnowledgeBase {
	return NewKnowledgeBase(embedding.NewHashEmbedder(256), NewInMemoryStore(), "scriptures", nil)
}

func TestKnowledgeBase_UpsertAndQuery(t *testing.T) {
	kb := newTestKnowledgeBase()
	ctx := context.Background()

	n, err := kb.Upsert(ctx, []string{
		"Om is the primordial sound from which creation unfolds.",
		"Japa is the repetition of a mantra with the breath.",
	}, "Mandukya")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = kb.Upsert(ctx, []string{"Cook the rice slowly in a clay pot."}, "Kitchen")
	require.NoError(t, err)

	hits, err := kb.Query(ctx, "what is the primordial sound Om", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Mandukya", hits[0].SourceID)
	assert.Contains(t, hits[0].Text, "primordial sound")
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)

	stats, err := kb.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalChunks)
	assert.Equal(t, 2, stats.TotalSources)
	assert.Equal(t, "scriptures", stats.CollectionName)
}

func TestKnowledgeBase_UpsertReplacesSource(t *testing.T) {
	kb := newTestKnowledgeBase()
	ctx := context.Background()

	_, err := kb.Upsert(ctx, []string{"one", "two", "three"}, "src")
	require.NoError(t, err)
	_, err = kb.Upsert(ctx, []string{"only"}, "src")
	require.NoError(t, err)

	stats, _ := kb.Stats(ctx)
	assert.Equal(t, 1, stats.TotalChunks)

	require.NoError(t, kb.Delete(ctx, "src"))
	stats, _ = kb.Stats(ctx)
	assert.Zero(t, stats.TotalChunks)
}

func TestKnowledgeBase_EmptyAndErrors(t *testing.T) {
	kb := newTestKnowledgeBase()
	ctx := context.Background()

	hits, err := kb.Query(ctx, "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.NotNil(t, hits)

	hits, err = kb.Query(ctx, "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	seeded := NewInMemoryStore()
	require.NoError(t, seeded.Store(ctx, []entities.Chunk{{ID: "s#0", SourceID: "s", Content: "Om", Embedding: []float32{1}}}))
	broken := NewKnowledgeBase(failingEmbedder{}, seeded, "scriptures", nil)
	_, err = broken.Query(ctx, "Om", 3)
	assert.ErrorContains(t, err, "embedder offline")
	_, err = broken.Upsert(ctx, []string{"x"}, "s")
	assert.Error(t, err)

	_, err = kb.Upsert(ctx, []string{"a"}, "s")
	require.NoError(t, err)
	require.NoError(t, kb.Clear(ctx))
	stats, _ := kb.Stats(ctx)
	assert.Zero(t, stats.TotalSources)
}

func TestKnowledgeBase_FailedUpsertKeepsPreviousVersion(t *testing.T) {
	store := &rejectingStore{InMemoryStore: NewInMemoryStore()}
	kb := NewKnowledgeBase(embedding.NewHashEmbedder(64), store, "scriptures", nil)
	ctx := context.Background()

	_, err := kb.Upsert(ctx, []string{"Om is the primordial sound.", "Japa steadies the mind."}, "s1")
	require.NoError(t, err)

	store.reject = true
	_, err = kb.Upsert(ctx, []string{"A rewritten first chunk."}, "s1")
	assert.ErrorContains(t, err, "disk full")

	stats, err := kb.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalChunks)
	assert.Equal(t, 1, stats.TotalSources)

	hits, err := kb.Query(ctx, "primordial sound", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Om is the primordial sound.", hits[0].Text)
}

func TestKnowledgeBase_EmptyCollectionSkipsEmbedding(t *testing.T) {
	kb := NewKnowledgeBase(failingEmbedder{}, NewInMemoryStore(), "scriptures", nil)

	hits, err := kb.Query(context.Background(), "Om", 3)
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "Bhagavad Gita#3", ChunkID("Bhagavad Gita", 3))
}
