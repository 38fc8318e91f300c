// Package loader provides document loading adapters for local scripture files.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

// TextLoader loads plain text documents (.txt, .md).
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text document from the given path.
func (l *TextLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	return loadFile(path, func(r io.Reader) (string, error) {
		content, err := io.ReadAll(r)
		return string(content), err
	})
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// HTMLLoader loads saved web pages and keeps only their readable text.
type HTMLLoader struct{}

// NewHTMLLoader creates a new HTML document loader.
func NewHTMLLoader() *HTMLLoader {
	return &HTMLLoader{}
}

// Load reads an HTML document and extracts its text.
func (l *HTMLLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	return loadFile(path, ExtractHTMLText)
}

// SupportedExtensions returns file extensions this loader handles.
func (l *HTMLLoader) SupportedExtensions() []string {
	return []string{".html", ".htm"}
}

type fileLoader interface {
	Load(context.Context, string) (*entities.Document, error)
	SupportedExtensions() []string
}

// MultiLoader dispatches on file extension.
type MultiLoader struct {
	loaders map[string]fileLoader
}

// NewMultiLoader creates a loader that handles text and HTML files.
func NewMultiLoader() *MultiLoader {
	m := &MultiLoader{loaders: make(map[string]fileLoader)}
	for _, l := range []fileLoader{NewTextLoader(), NewHTMLLoader()} {
		for _, ext := range l.SupportedExtensions() {
			m.loaders[ext] = l
		}
	}
	return m
}

// Load dispatches to the appropriate loader based on extension.
func (m *MultiLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := m.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	return l.Load(ctx, path)
}

// SupportedExtensions returns all supported extensions.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	return exts
}

func loadFile(path string, extract func(io.Reader) (string, error)) (*entities.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	content, err := extract(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return &entities.Document{
		ID:        generateDocID(path),
		Name:      filepath.Base(path),
		Path:      path,
		Content:   content,
		CreatedAt: info.ModTime(),
		UpdatedAt: time.Now(),
	}, nil
}

// generateDocID creates a deterministic ID for a document.
func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}
