package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/domain/ports"
)

// Kind names a supported backend.
type Kind string

const (
	KindGroq   Kind = "groq"
	KindGemini Kind = "gemini"
	KindOllama Kind = "ollama"
)

// Kinds lists every supported backend.
func Kinds() []Kind { return []Kind{KindGroq, KindGemini, KindOllama} }

// ParseKind validates a provider name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown llm provider %q (want groq, gemini or ollama)", s)
}

// Settings carries the configuration of every backend; Kind picks one.
type Settings struct {
	Kind   Kind
	Groq   GroqConfig
	Gemini GeminiConfig
	Ollama OllamaConfig
}

// New builds the selected provider.
func New(s Settings, logger *zap.Logger) (ports.GenerationProvider, error) {
	var (
		p   ports.GenerationProvider
		err error
	)
	switch s.Kind {
	case KindGroq:
		var g *GroqProvider
		if g, err = NewGroqProvider(s.Groq, logger); err == nil {
			p = g
		}
	case KindGemini:
		var g *GeminiProvider
		if g, err = NewGeminiProvider(s.Gemini, logger); err == nil {
			p = g
		}
	case KindOllama:
		p = NewOllamaProvider(s.Ollama, logger)
	default:
		err = fmt.Errorf("unknown llm provider %q", s.Kind)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
