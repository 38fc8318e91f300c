// Package entities contains the core domain objects of the scripture assistant.
// Pure data, no knowledge of storage, transport or model backends.
package entities

import "time"

// Document is a piece of source text loaded from disk or fetched from a URL.
type Document struct {
	ID        string
	Name      string
	Path      string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk is a bounded fragment of a source, as held by a vector backend.
type Chunk struct {
	ID        string
	SourceID  string
	Content   string
	Index     int       // Position in source
	Embedding []float32 // Populated by the embedding adapter
}

// QueryResult is a backend hit. Score is the backend's native similarity.
type QueryResult struct {
	Chunk Chunk
	Score float64
}

// RetrievedChunk is what the knowledge store hands to the orchestrator.
// Ordered by descending relevance; never mutated once returned.
type RetrievedChunk struct {
	Text     string
	SourceID string
	Score    float64
}

// RetrievalContext is the per-request retrieval result.
type RetrievalContext struct {
	Chunks []RetrievedChunk
}

// Empty reports whether retrieval produced nothing usable.
func (rc RetrievalContext) Empty() bool {
	return len(rc.Chunks) == 0
}

// Sources returns the distinct source ids in first-appearance order. An
// empty id counts as a source like any other. It never returns nil so the
// wire form is always a JSON array.
func (rc RetrievalContext) Sources() []string {
	sources := make([]string, 0, len(rc.Chunks))
	seen := make(map[string]struct{}, len(rc.Chunks))
	for _, c := range rc.Chunks {
		if _, ok := seen[c.SourceID]; ok {
			continue
		}
		seen[c.SourceID] = struct{}{}
		sources = append(sources, c.SourceID)
	}
	return sources
}

// BestScore returns the highest score, or 0 for an empty context.
func (rc RetrievalContext) BestScore() float64 {
	best := 0.0
	for i, c := range rc.Chunks {
		if i == 0 || c.Score > best {
			best = c.Score
		}
	}
	return best
}

// PromptEnvelope is the composed input for one generation call.
type PromptEnvelope struct {
	SystemPrompt string
	UserQuery    string
}

// ChunkKind tags an AnswerChunk.
type ChunkKind int

const (
	ChunkToken ChunkKind = iota
	ChunkDone
	ChunkError
)

// AnswerChunk is one element of an answer stream. A stream carries any
// number of tokens followed by at most one terminal chunk (done or error).
type AnswerChunk struct {
	Kind    ChunkKind
	Token   string
	Sources []string
	Error   string
}

// IsTerminal reports whether no chunk may follow this one.
func (c AnswerChunk) IsTerminal() bool {
	return c.Kind == ChunkDone || c.Kind == ChunkError
}

// TokenChunk builds an in-flight chunk.
func TokenChunk(token string) AnswerChunk {
	return AnswerChunk{Kind: ChunkToken, Token: token}
}

// DoneChunk builds the successful terminal chunk.
func DoneChunk(sources []string) AnswerChunk {
	if sources == nil {
		sources = []string{}
	}
	return AnswerChunk{Kind: ChunkDone, Sources: sources}
}

// ErrorChunk builds the failed terminal chunk.
func ErrorChunk(message string) AnswerChunk {
	return AnswerChunk{Kind: ChunkError, Error: message}
}

// Answer is the result of a non-streaming request.
type Answer struct {
	Response    string   `json:"response"`
	ContextUsed string   `json:"context_used"`
	Sources     []string `json:"sources"`
}

// IngestedSource summarizes one ingestion.
type IngestedSource struct {
	URL        string
	ChunkCount int
}

// StoreStats describes the knowledge base contents.
type StoreStats struct {
	TotalChunks    int    `json:"total_chunks"`
	TotalSources   int    `json:"total_sources"`
	CollectionName string `json:"collection_name"`
}

// SeedEntry describes one bundled scripture file.
type SeedEntry struct {
	File        string `yaml:"file"`
	SourceID    string `yaml:"source"`
	Description string `yaml:"description"`
}
