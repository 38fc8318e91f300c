package vectordb

import (
	"context"
	"sync"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

// InMemoryStore keeps chunks in process memory. Contents are lost on exit.
type InMemoryStore struct {
	mu      sync.RWMutex
	chunks  map[string]entities.Chunk // chunkID -> chunk
	sources map[string][]string       // sourceID -> []chunkID
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		chunks:  make(map[string]entities.Chunk),
		sources: make(map[string][]string),
	}
}

// Store saves chunks with their embeddings, replacing chunks with the same ID.
func (s *InMemoryStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if _, exists := s.chunks[chunk.ID]; !exists {
			s.sources[chunk.SourceID] = append(s.sources[chunk.SourceID], chunk.ID)
		}
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// Replace swaps the chunks of a source under a single lock.
func (s *InMemoryStore) Replace(ctx context.Context, sourceID string, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.sources[sourceID] {
		delete(s.chunks, id)
	}
	delete(s.sources, sourceID)

	for _, chunk := range chunks {
		if _, exists := s.chunks[chunk.ID]; !exists {
			s.sources[chunk.SourceID] = append(s.sources[chunk.SourceID], chunk.ID)
		}
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// Search finds the most similar chunks to a query embedding.
func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, k int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]entities.QueryResult, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		results = append(results, entities.QueryResult{
			Chunk: chunk,
			Score: cosineSimilarity(embedding, chunk.Embedding),
		})
	}
	return topK(results, k), nil
}

// Delete removes all chunks of a source.
func (s *InMemoryStore) Delete(ctx context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.sources[sourceID] {
		delete(s.chunks, id)
	}
	delete(s.sources, sourceID)
	return nil
}

// Clear removes all data from the store.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = make(map[string]entities.Chunk)
	s.sources = make(map[string][]string)
	return nil
}

// Count returns the number of chunks and distinct sources.
func (s *InMemoryStore) Count(ctx context.Context) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), len(s.sources), nil
}
