// Package fetcher downloads scripture pages for ingestion.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/0xcro3dile/netra-go/internal/adapters/loader"
	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxBytes = 5 << 20
	userAgent       = "netra-go/1.0 (+scripture ingestion)"
)

// HTTPFetcher implements ports.DocumentFetcher over plain HTTP.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates a fetcher. A zero timeout uses 30s.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: defaultMaxBytes,
	}
}

// Fetch downloads rawURL and returns its readable text.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*entities.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html, text/plain;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", u, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, f.maxBytes)

	var text string
	if isPlainText(resp.Header.Get("Content-Type")) {
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", u, err)
		}
		text = strings.TrimSpace(string(raw))
	} else {
		text, err = loader.ExtractHTMLText(body)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", u, err)
		}
	}

	now := time.Now()
	return &entities.Document{
		ID:        rawURL,
		Name:      rawURL,
		Path:      rawURL,
		Content:   text,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func isPlainText(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/plain"
}
