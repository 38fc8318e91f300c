package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/domain/ports"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel   = "gemini-pro"
)

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// GeminiProvider calls Google's generateContent API. The persona and the
// question travel as a single user turn.
type GeminiProvider struct {
	cfg    GeminiConfig
	client *http.Client
	logger *zap.Logger
}

// NewGeminiProvider creates a Gemini provider. An API key is required.
func NewGeminiProvider(cfg GeminiConfig, logger *zap.Logger) (*GeminiProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiProvider{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("provider", "gemini")),
	}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason,omitempty"`
	} `json:"candidates"`
}

func (r geminiResponse) text() string {
	var sb strings.Builder
	for _, c := range r.Candidates {
		for _, part := range c.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func (p *GeminiProvider) request(systemPrompt, userQuery string) geminiRequest {
	return geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: systemPrompt + "\n\nUser Query: " + userQuery}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     p.cfg.Temperature,
			MaxOutputTokens: p.cfg.MaxTokens,
		},
	}
}

func (p *GeminiProvider) endpoint(method string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:%s", strings.TrimRight(p.cfg.BaseURL, "/"), p.cfg.Model, method)
}

func (p *GeminiProvider) headers(req *http.Request) {
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)
}

// Generate returns the full candidate text.
func (p *GeminiProvider) Generate(ctx context.Context, systemPrompt, userQuery string) (string, error) {
	resp, err := postJSON(ctx, p.client, p.Name(), p.endpoint("generateContent"),
		p.request(systemPrompt, userQuery), p.headers)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", transportError(p.Name(), err)
	}
	if len(out.Candidates) == 0 {
		return "", transportError(p.Name(), errors.New("response has no candidates"))
	}
	return out.text(), nil
}

// GenerateStream streams candidate parts over server-sent events.
func (p *GeminiProvider) GenerateStream(ctx context.Context, systemPrompt, userQuery string) (<-chan ports.StreamToken, error) {
	resp, err := postJSON(ctx, p.client, p.Name(), p.endpoint("streamGenerateContent")+"?alt=sse",
		p.request(systemPrompt, userQuery), p.headers)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("stream opened", zap.String("model", p.cfg.Model))

	return streamSSE(ctx, resp.Body, p.Name(), func(data []byte) (string, bool, error) {
		var chunk geminiResponse
		if err := json.Unmarshal(data, &chunk); err != nil {
			return "", false, err
		}
		return chunk.text(), false, nil
	}), nil
}
