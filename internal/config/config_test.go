package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/netra-go/internal/adapters/llm"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GROQ_API_KEY", "")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 20, cfg.Server.RateLimitPerMinute)
	assert.Equal(t, "groq", cfg.Provider.Name)
	assert.Equal(t, 0.7, cfg.Provider.Temperature)
	assert.Equal(t, 1024, cfg.Provider.MaxTokens)
	assert.Equal(t, llm.DefaultGroqModel, cfg.Provider.Groq.Model)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, 2000, cfg.RAG.MaxQuestionLength)
	assert.Equal(t, 200, cfg.RAG.ContextPreviewLength)
	assert.Equal(t, 30*time.Second, cfg.RAG.GenerationTimeout)
	assert.False(t, cfg.RAG.Guard.Enabled)
	assert.Equal(t, 0.3, cfg.RAG.Guard.MinScore)
	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.Equal(t, 200, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 50, cfg.Ingest.MinTextLength)
	assert.Equal(t, "scriptures", cfg.Store.Collection)
	assert.Equal(t, 500, cfg.Cache.MaxSize)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "netra.yaml", `
provider:
  name: Gemini
  temperature: 0.2
store:
  backend: qdrant
  qdrant:
    url: qdrant:6334
rag:
  top_k: 5
  generation_timeout: 45s
`)
	t.Setenv("NETRA_RAG_TOP_K", "7")
	t.Setenv("NETRA_SERVER_CORS_ORIGINS", "https://netra.example,https://app.example")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Provider.Name)
	assert.Equal(t, 0.2, cfg.Provider.Temperature)
	assert.Equal(t, "qdrant", cfg.Store.Backend)
	assert.Equal(t, "qdrant:6334", cfg.Store.Qdrant.URL)
	assert.Equal(t, 7, cfg.RAG.TopK)
	assert.Equal(t, 45*time.Second, cfg.RAG.GenerationTimeout)
	assert.Equal(t, []string{"https://netra.example", "https://app.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "google-key", cfg.Provider.Gemini.APIKey)
}

func TestLoad_SearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "netra.yaml", "server:\n  addr: \":9000\"\n")
	t.Chdir(dir)

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownBackends(t *testing.T) {
	path := writeFile(t, t.TempDir(), "netra.yaml", `
provider:
  name: openai
store:
  backend: postgres
cache:
  backend: memcached
`)
	_, err := Load(New(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown llm provider "openai"`)
	assert.Contains(t, err.Error(), `store.backend "postgres"`)
	assert.Contains(t, err.Error(), `cache.backend "memcached"`)
}

func TestValidate_ChunkOverlap(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	cfg.Ingest.ChunkOverlap = cfg.Ingest.ChunkSize
	assert.ErrorContains(t, cfg.Validate(), "ingest.chunk_overlap")
}

func TestLLMSettings(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("NETRA_PROVIDER_MAX_TOKENS", "256")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	s := cfg.LLMSettings()
	assert.Equal(t, llm.KindGroq, s.Kind)
	assert.Equal(t, "groq-key", s.Groq.APIKey)
	assert.Equal(t, 256, s.Groq.MaxTokens)
	assert.Equal(t, 256, s.Ollama.MaxTokens)
	assert.Equal(t, 0.7, s.Gemini.Temperature)
	assert.Equal(t, llm.DefaultOllamaBaseURL, s.Ollama.BaseURL)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "NETRA_TEST_DOTENV=loaded\n")
	t.Setenv("NETRA_TEST_DOTENV", "")
	os.Unsetenv("NETRA_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("NETRA_TEST_DOTENV"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
