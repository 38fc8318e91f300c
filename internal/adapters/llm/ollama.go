package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/domain/ports"
)

const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "llama3.2"
)

// OllamaConfig configures a local Ollama daemon.
type OllamaConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OllamaProvider uses Ollama's chat API, streamed as newline-delimited JSON.
type OllamaProvider struct {
	cfg    OllamaConfig
	client *http.Client
	logger *zap.Logger
}

// NewOllamaProvider creates a provider for a local model.
func NewOllamaProvider(cfg OllamaConfig, logger *zap.Logger) *OllamaProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaProvider{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("provider", "ollama")),
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaChatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

func (p *OllamaProvider) request(systemPrompt, userQuery string, stream bool) ollamaChatRequest {
	return ollamaChatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userQuery},
		},
		Stream:  stream,
		Options: ollamaOptions{Temperature: p.cfg.Temperature, NumPredict: p.cfg.MaxTokens},
	}
}

// Generate produces the whole reply in one response.
func (p *OllamaProvider) Generate(ctx context.Context, systemPrompt, userQuery string) (string, error) {
	resp, err := postJSON(ctx, p.client, p.Name(), p.cfg.BaseURL+"/api/chat",
		p.request(systemPrompt, userQuery, false), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", transportError(p.Name(), err)
	}
	if out.Error != "" {
		return "", mapHTTPError(http.StatusBadGateway, out.Error, p.Name())
	}
	return out.Message.Content, nil
}

// GenerateStream relays message deltas until the daemon reports done.
func (p *OllamaProvider) GenerateStream(ctx context.Context, systemPrompt, userQuery string) (<-chan ports.StreamToken, error) {
	resp, err := postJSON(ctx, p.client, p.Name(), p.cfg.BaseURL+"/api/chat",
		p.request(systemPrompt, userQuery, true), nil)
	if err != nil {
		return nil, err
	}

	return streamNDJSON(ctx, resp.Body, p.Name(), func(data []byte) (string, bool, error) {
		var chunk ollamaChatResponse
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip malformed lines
			return "", false, nil
		}
		if chunk.Error != "" {
			return "", true, &ProviderError{Provider: p.Name(), Message: chunk.Error}
		}
		return chunk.Message.Content, chunk.Done, nil
	}), nil
}
