// Package embedding turns chunk text into vectors. OllamaEmbedder calls a
// local Ollama daemon; HashEmbedder needs no service at all.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/infrastructure/pool"
)

// OllamaEmbedder implements ports.EmbeddingService using Ollama's embeddings API.
type OllamaEmbedder struct {
	baseURL string
	model   string
	client  *http.Client
	workers *pool.Pool
	logger  *zap.Logger
}

// NewOllamaEmbedder creates an embedder. When workers is non-nil, batches
// are embedded concurrently on it.
func NewOllamaEmbedder(baseURL, model string, workers *pool.Pool, logger *zap.Logger) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaEmbedder{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		workers: workers,
		logger:  logger.With(zap.String("embedder", "ollama")),
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates an embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	jsonData, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var embedResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(embedResp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding for model %s", e.model)
	}

	e.logger.Debug("embedded text", zap.Int("dims", len(embedResp.Embedding)))
	return embedResp.Embedding, nil
}

// EmbedBatch generates embeddings for multiple texts, preserving order.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	if e.workers == nil {
		for i, text := range texts {
			emb, err := e.Embed(ctx, text)
			if err != nil {
				return nil, fmt.Errorf("embedding text %d: %w", i, err)
			}
			embeddings[i] = emb
		}
		return embeddings, nil
	}

	tasks := make([]func(context.Context) error, len(texts))
	for i, text := range texts {
		i, text := i, text
		tasks[i] = func(ctx context.Context) error {
			emb, err := e.Embed(ctx, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			embeddings[i] = emb
			return nil
		}
	}
	if err := e.workers.Run(ctx, tasks...); err != nil {
		return nil, err
	}
	return embeddings, nil
}
