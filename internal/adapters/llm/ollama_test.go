package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaProvider_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "What is Om?" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if req.Stream {
			t.Error("Generate should not request streaming")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"role": "assistant", "content": "Om is the primordial sound."},
			"done":    true,
		})
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: server.URL, Model: "test-model"}, nil)
	resp, err := p.Generate(context.Background(), "You are Netra.", "What is Om?")

	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if resp != "Om is the primordial sound." {
		t.Errorf("unexpected response: %s", resp)
	}
}

func TestOllamaProvider_GenerateStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// newline delimited JSON
		w.Write([]byte(`{"message":{"content":"Om"},"done":false}` + "\n"))
		w.Write([]byte("not json\n"))
		w.Write([]byte(`{"message":{"content":" is"},"done":false}` + "\n"))
		w.Write([]byte(`{"message":{"content":" sound."},"done":true}` + "\n"))
		w.Write([]byte(`{"message":{"content":" ignored"},"done":false}` + "\n"))
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: server.URL}, nil)
	ch, err := p.GenerateStream(context.Background(), "system", "query")
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	var text string
	for tok := range ch {
		if tok.Error != nil {
			t.Fatalf("unexpected stream error: %v", tok.Error)
		}
		text += tok.Content
	}

	if text != "Om is sound." {
		t.Errorf("unexpected text: %q", text)
	}
}

func TestOllamaProvider_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{BaseURL: server.URL}, nil)
	if _, err := p.Generate(context.Background(), "s", "q"); err == nil {
		t.Error("should error on 404")
	}
	if _, err := p.GenerateStream(context.Background(), "s", "q"); err == nil {
		t.Error("stream should error on 404")
	}
}

func TestOllamaProvider_DefaultValues(t *testing.T) {
	p := NewOllamaProvider(OllamaConfig{}, nil)
	if p.cfg.BaseURL != DefaultOllamaBaseURL {
		t.Error("should default to localhost")
	}
	if p.cfg.Model != DefaultOllamaModel {
		t.Error("should default to llama3.2")
	}
	if p.Name() != "ollama" {
		t.Errorf("unexpected name %q", p.Name())
	}
}
