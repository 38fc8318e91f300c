// Package ports defines the boundaries between the domain and its adapters.
// Usecases depend on these interfaces; adapters implement them.
package ports

import (
	"context"
	"time"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

// KnowledgeStore is the retrieval capability consumed by the orchestrator.
type KnowledgeStore interface {
	// Upsert replaces every chunk of sourceID with the given texts and
	// returns how many were stored.
	Upsert(ctx context.Context, chunks []string, sourceID string) (int, error)

	// Query returns up to k chunks ordered by descending relevance.
	// An empty collection yields an empty slice and no error.
	Query(ctx context.Context, text string, k int) ([]entities.RetrievedChunk, error)

	// Delete removes all chunks of a source.
	Delete(ctx context.Context, sourceID string) error

	// Stats reports collection size.
	Stats(ctx context.Context) (entities.StoreStats, error)

	// Clear removes everything.
	Clear(ctx context.Context) error
}

// GenerationProvider abstracts one language-model backend.
type GenerationProvider interface {
	// Name identifies the backend ("groq", "gemini", "ollama").
	Name() string

	// Generate returns the full answer in one call.
	Generate(ctx context.Context, systemPrompt, userQuery string) (string, error)

	// GenerateStream returns a finite token sequence. The channel is closed
	// on completion; a token carrying Error is the last one sent.
	GenerateStream(ctx context.Context, systemPrompt, userQuery string) (<-chan StreamToken, error)
}

// StreamToken is a single fragment of a streaming generation.
type StreamToken struct {
	Content string
	Error   error
}

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists and searches embedded chunks.
type VectorStore interface {
	Store(ctx context.Context, chunks []entities.Chunk) error
	// Replace swaps the chunks of sourceID for chunks. On error the
	// previous chunks of the source remain searchable.
	Replace(ctx context.Context, sourceID string, chunks []entities.Chunk) error
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error)
	Delete(ctx context.Context, sourceID string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (chunks int, sources int, err error)
}

// DocumentLoader reads documents from disk.
type DocumentLoader interface {
	Load(ctx context.Context, path string) (*entities.Document, error)
	SupportedExtensions() []string
}

// DocumentFetcher retrieves remote pages as plain text.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (*entities.Document, error)
}

// ResponseCache memoizes non-streaming answers by question.
type ResponseCache interface {
	Get(ctx context.Context, question string) (*entities.Answer, bool)
	Set(ctx context.Context, question string, answer *entities.Answer)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) CacheStats
}

// CacheStats is the cache snapshot served by /cache-stats.
type CacheStats struct {
	Backend    string `json:"backend"`
	Size       int    `json:"size"`
	MaxSize    int    `json:"max_size"`
	TTLSeconds int    `json:"ttl_seconds"`
	Hits       int64  `json:"hits"`
	Misses     int64  `json:"misses"`
	HitRate    string `json:"hit_rate"`
}

// AnswerRecorder receives orchestrator outcomes for metrics.
type AnswerRecorder interface {
	ObserveAnswer(mode, outcome string)
	ObserveGeneration(provider string, d time.Duration)
	RetrievalDegraded()
	TokenStreamed()
}

// IngestRecorder counts stored chunks for metrics.
type IngestRecorder interface {
	ChunksIngested(n int)
}

// TaskRunner executes work on a bounded set of goroutines.
type TaskRunner interface {
	Submit(task func()) error
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
