// Package client talks to a running netra server: atomic answers, streamed
// answers, URL learning and statistics.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

// Client is a thin HTTP client for the chat API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default transport. Streaming requests rely on
// the caller's context for cancellation, so a client-wide Timeout cuts long
// answers short.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the logger used for skipped stream records.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// New creates a client for the server at baseURL (e.g. http://localhost:8000).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is a non-2xx reply from the server.
type StatusError struct {
	StatusCode int
	Code       string
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Code, e.Detail)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// Ask requests a complete answer.
func (c *Client) Ask(ctx context.Context, question string) (*entities.Answer, error) {
	var answer entities.Answer
	if err := c.do(ctx, http.MethodPost, "/chat", map[string]string{"question": question}, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

// Stream requests a streamed answer. The returned channel yields tokens
// and then exactly one terminal chunk, or closes early when ctx is
// cancelled. Stop reading by cancelling ctx.
func (c *Client) Stream(ctx context.Context, question string) (<-chan entities.AnswerChunk, error) {
	resp, err := c.send(ctx, http.MethodPost, "/chat/stream", map[string]string{"question": question})
	if err != nil {
		return nil, err
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected content type %q", ct)
	}

	out := make(chan entities.AnswerChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		ReadStream(ctx, resp.Body, out, c.logger)
	}()
	return out, nil
}

// Learn asks the server to ingest a web page and returns the chunk count.
func (c *Client) Learn(ctx context.Context, url string) (int, error) {
	var res struct {
		ChunksAdded int `json:"chunks_added"`
	}
	if err := c.do(ctx, http.MethodPost, "/learn", map[string]string{"url": url}, &res); err != nil {
		return 0, err
	}
	return res.ChunksAdded, nil
}

// Stats returns the knowledge base statistics.
func (c *Client) Stats(ctx context.Context) (entities.StoreStats, error) {
	var stats entities.StoreStats
	err := c.do(ctx, http.MethodGet, "/stats", nil, &stats)
	return stats, err
}

// Health returns the server's health document.
func (c *Client) Health(ctx context.Context) (map[string]string, error) {
	var health map[string]string
	err := c.do(ctx, http.MethodGet, "/health", nil, &health)
	return health, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// send performs the request; the caller owns the body of a 2xx response.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.logger.Debug("response received",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, readStatusError(resp)
	}
	return resp, nil
}

func readStatusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Detail    string `json:"detail"`
		ErrorCode string `json:"error_code"`
		Error     string `json:"error"`
		Message   string `json:"message"`
	}
	se := &StatusError{StatusCode: resp.StatusCode}
	if json.Unmarshal(raw, &body) == nil {
		se.Code = body.ErrorCode
		switch {
		case body.Detail != "":
			se.Detail = body.Detail
		case body.Message != "":
			se.Detail = body.Message
		default:
			se.Detail = body.Error
		}
	}
	if se.Detail == "" {
		se.Detail = strings.TrimSpace(string(raw))
	}
	return se
}
