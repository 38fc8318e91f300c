package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/domain/ports"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.1-8b-instant"
)

// GroqConfig configures the Groq backend.
type GroqConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// GroqProvider talks to Groq's OpenAI-compatible chat completions API.
type GroqProvider struct {
	cfg    GroqConfig
	client *openai.Client
	logger *zap.Logger
}

// NewGroqProvider creates a Groq provider. An API key is required.
func NewGroqProvider(cfg GroqConfig, logger *zap.Logger) (*GroqProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("groq: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGroqBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGroqModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientConfig.HTTPClient = newHTTPClient(cfg.Timeout)

	return &GroqProvider{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger.With(zap.String("provider", "groq")),
	}, nil
}

func (p *GroqProvider) Name() string { return "groq" }

func (p *GroqProvider) request(systemPrompt, userQuery string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: p.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userQuery},
		},
		Temperature: float32(p.cfg.Temperature),
		MaxTokens:   p.cfg.MaxTokens,
	}
}

// Generate returns the full completion.
func (p *GroqProvider) Generate(ctx context.Context, systemPrompt, userQuery string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.request(systemPrompt, userQuery))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", p.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", transportError(p.Name(), errors.New("response has no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

// GenerateStream streams completion deltas. The channel closes when the
// backend finishes, after an error token, or when ctx is cancelled.
func (p *GroqProvider) GenerateStream(ctx context.Context, systemPrompt, userQuery string) (<-chan ports.StreamToken, error) {
	req := p.request(systemPrompt, userQuery)
	req.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, p.mapError(err)
	}
	p.logger.Debug("stream opened", zap.String("model", p.cfg.Model))

	ch := make(chan ports.StreamToken)
	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					emit(ctx, ch, ports.StreamToken{Error: p.mapError(err)})
				}
				return
			}

			var sb strings.Builder
			for _, c := range resp.Choices {
				sb.WriteString(c.Delta.Content)
			}
			if sb.Len() == 0 {
				continue
			}
			if !emit(ctx, ch, ports.StreamToken{Content: sb.String()}) {
				return
			}
		}
	}()
	return ch, nil
}

// mapError classifies go-openai failures. Status-bearing errors go through
// mapHTTPError; the rest are transport or decoding failures.
func (p *GroqProvider) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		msg := apiErr.Message
		if apiErr.Type != "" {
			msg = fmt.Sprintf("%s (type: %s)", msg, apiErr.Type)
		}
		return mapHTTPError(apiErr.HTTPStatusCode, msg, p.Name())
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		msg := strings.TrimSpace(string(reqErr.Body))
		if msg == "" && reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return mapHTTPError(reqErr.HTTPStatusCode, msg, p.Name())
	}
	return transportError(p.Name(), err)
}
