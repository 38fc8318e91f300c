// Package config loads netra settings from defaults, an optional YAML file
// and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/0xcro3dile/netra-go/internal/adapters/llm"
)

// EnvPrefix prefixes every environment override, e.g. NETRA_SERVER_ADDR.
const EnvPrefix = "NETRA"

// Config is the full application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	RAG       RAGConfig       `mapstructure:"rag"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Store     StoreConfig     `mapstructure:"store"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// LogConfig selects the log level (debug|info|warn|error) and format (json|console).
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Addr               string        `mapstructure:"addr"`
	CORSOrigins        []string      `mapstructure:"cors_origins"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
}

// ProviderConfig picks the generation backend. Temperature, MaxTokens and
// Timeout apply to whichever backend is selected.
type ProviderConfig struct {
	Name        string        `mapstructure:"name"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Groq        RemoteLLM     `mapstructure:"groq"`
	Gemini      RemoteLLM     `mapstructure:"gemini"`
	Ollama      LocalLLM      `mapstructure:"ollama"`
}

type RemoteLLM struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type LocalLLM struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type RAGConfig struct {
	TopK                 int           `mapstructure:"top_k"`
	MaxQuestionLength    int           `mapstructure:"max_question_length"`
	ContextPreviewLength int           `mapstructure:"context_preview_length"`
	GenerationTimeout    time.Duration `mapstructure:"generation_timeout"`
	Guard                GuardConfig   `mapstructure:"guard"`
}

// GuardConfig enables the off-topic reply for weakly matching questions.
type GuardConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	MinScore float64 `mapstructure:"min_score"`
}

type IngestConfig struct {
	ChunkSize     int           `mapstructure:"chunk_size"`
	ChunkOverlap  int           `mapstructure:"chunk_overlap"`
	MinTextLength int           `mapstructure:"min_text_length"`
	Workers       int           `mapstructure:"workers"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	SeedDir       string        `mapstructure:"seed_dir"`
	Manifest      string        `mapstructure:"manifest"`
	AutoSeed      bool          `mapstructure:"auto_seed"`
	WatchDir      string        `mapstructure:"watch_dir"`
	Debounce      time.Duration `mapstructure:"debounce"`
}

type StoreConfig struct {
	Backend    string       `mapstructure:"backend"`
	Collection string       `mapstructure:"collection"`
	DataDir    string       `mapstructure:"data_dir"`
	Qdrant     QdrantConfig `mapstructure:"qdrant"`
	Milvus     MilvusConfig `mapstructure:"milvus"`
}

type QdrantConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MilvusConfig struct {
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// EmbeddingConfig selects ollama (semantic) or hash (offline, lexical) embeddings.
type EmbeddingConfig struct {
	Backend    string `mapstructure:"backend"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
}

type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	MaxSize int           `mapstructure:"max_size"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Backend names.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreQdrant = "qdrant"
	StoreMilvus = "milvus"

	EmbeddingOllama = "ollama"
	EmbeddingHash   = "hash"

	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// New returns a viper instance with every default registered and
// environment overrides enabled.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Conventional unprefixed key names.
	_ = v.BindEnv("provider.groq.api_key", EnvPrefix+"_PROVIDER_GROQ_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("provider.gemini.api_key", EnvPrefix+"_PROVIDER_GEMINI_API_KEY", "GOOGLE_API_KEY")
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.rate_limit_per_minute", 20)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("provider.name", string(llm.KindGroq))
	v.SetDefault("provider.temperature", 0.7)
	v.SetDefault("provider.max_tokens", 1024)
	v.SetDefault("provider.timeout", 60*time.Second)
	v.SetDefault("provider.groq.api_key", "")
	v.SetDefault("provider.groq.model", llm.DefaultGroqModel)
	v.SetDefault("provider.groq.base_url", llm.DefaultGroqBaseURL)
	v.SetDefault("provider.gemini.api_key", "")
	v.SetDefault("provider.gemini.model", llm.DefaultGeminiModel)
	v.SetDefault("provider.gemini.base_url", llm.DefaultGeminiBaseURL)
	v.SetDefault("provider.ollama.base_url", llm.DefaultOllamaBaseURL)
	v.SetDefault("provider.ollama.model", llm.DefaultOllamaModel)

	v.SetDefault("rag.top_k", 3)
	v.SetDefault("rag.max_question_length", 2000)
	v.SetDefault("rag.context_preview_length", 200)
	v.SetDefault("rag.generation_timeout", 30*time.Second)
	v.SetDefault("rag.guard.enabled", false)
	v.SetDefault("rag.guard.min_score", 0.3)

	v.SetDefault("ingest.chunk_size", 1000)
	v.SetDefault("ingest.chunk_overlap", 200)
	v.SetDefault("ingest.min_text_length", 50)
	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.fetch_timeout", 30*time.Second)
	v.SetDefault("ingest.seed_dir", "data/scriptures")
	v.SetDefault("ingest.manifest", "data/scriptures/manifest.yaml")
	v.SetDefault("ingest.auto_seed", true)
	v.SetDefault("ingest.watch_dir", "")
	v.SetDefault("ingest.debounce", 500*time.Millisecond)

	v.SetDefault("store.backend", StoreSQLite)
	v.SetDefault("store.collection", "scriptures")
	v.SetDefault("store.data_dir", "data/db")
	v.SetDefault("store.qdrant.url", "localhost:6334")
	v.SetDefault("store.qdrant.api_key", "")
	v.SetDefault("store.qdrant.timeout", 10*time.Second)
	v.SetDefault("store.milvus.address", "localhost:19530")
	v.SetDefault("store.milvus.username", "")
	v.SetDefault("store.milvus.password", "")
	v.SetDefault("store.milvus.database", "")
	v.SetDefault("store.milvus.timeout", 10*time.Second)

	v.SetDefault("embedding.backend", EmbeddingOllama)
	v.SetDefault("embedding.base_url", llm.DefaultOllamaBaseURL)
	v.SetDefault("embedding.model", "nomic-embed-text")
	v.SetDefault("embedding.dimensions", 384)

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.max_size", 500)
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", "netra:answer:")

	v.SetDefault("metrics.enabled", true)
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads the config file into v and returns the merged, validated
// configuration. With an empty path, netra.yaml is looked up in the working
// directory and ./config; not finding one is fine. An explicit path must exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("netra")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	for _, s := range []*string{&c.Log.Level, &c.Log.Format, &c.Provider.Name, &c.Store.Backend, &c.Embedding.Backend, &c.Cache.Backend} {
		*s = strings.ToLower(strings.TrimSpace(*s))
	}
}

// Validate rejects settings the application cannot start with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	if _, err := llm.ParseKind(c.Provider.Name); err != nil {
		errs = append(errs, err)
	}
	check(oneOf(c.Log.Level, "debug", "info", "warn", "error"), "log.level %q is not one of debug, info, warn, error", c.Log.Level)
	check(oneOf(c.Log.Format, "json", "console"), "log.format %q is not one of json, console", c.Log.Format)
	check(oneOf(c.Store.Backend, StoreMemory, StoreSQLite, StoreQdrant, StoreMilvus), "store.backend %q is not one of memory, sqlite, qdrant, milvus", c.Store.Backend)
	check(oneOf(c.Embedding.Backend, EmbeddingOllama, EmbeddingHash), "embedding.backend %q is not one of ollama, hash", c.Embedding.Backend)
	check(oneOf(c.Cache.Backend, CacheMemory, CacheRedis, CacheNone), "cache.backend %q is not one of memory, redis, none", c.Cache.Backend)
	check(c.Server.RateLimitPerMinute > 0, "server.rate_limit_per_minute must be positive")
	check(c.RAG.TopK > 0, "rag.top_k must be positive")
	check(c.RAG.MaxQuestionLength > 0, "rag.max_question_length must be positive")
	check(c.RAG.GenerationTimeout > 0, "rag.generation_timeout must be positive")
	check(c.RAG.Guard.MinScore >= 0 && c.RAG.Guard.MinScore <= 1, "rag.guard.min_score must be within [0, 1]")
	check(c.Ingest.ChunkSize > 0, "ingest.chunk_size must be positive")
	check(c.Ingest.ChunkOverlap >= 0 && c.Ingest.ChunkOverlap < c.Ingest.ChunkSize, "ingest.chunk_overlap must be in [0, chunk_size)")
	check(c.Store.Collection != "", "store.collection must not be empty")

	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// LLMSettings builds the provider settings for the selected backend.
func (c *Config) LLMSettings() llm.Settings {
	kind, _ := llm.ParseKind(c.Provider.Name)
	p := c.Provider
	return llm.Settings{
		Kind: kind,
		Groq: llm.GroqConfig{
			APIKey:      p.Groq.APIKey,
			BaseURL:     p.Groq.BaseURL,
			Model:       p.Groq.Model,
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
			Timeout:     p.Timeout,
		},
		Gemini: llm.GeminiConfig{
			APIKey:      p.Gemini.APIKey,
			BaseURL:     p.Gemini.BaseURL,
			Model:       p.Gemini.Model,
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
			Timeout:     p.Timeout,
		},
		Ollama: llm.OllamaConfig{
			BaseURL:     p.Ollama.BaseURL,
			Model:       p.Ollama.Model,
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
			Timeout:     p.Timeout,
		},
	}
}
