package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/adapters/cache"
	"github.com/0xcro3dile/netra-go/internal/adapters/embedding"
	"github.com/0xcro3dile/netra-go/internal/adapters/fetcher"
	"github.com/0xcro3dile/netra-go/internal/adapters/llm"
	"github.com/0xcro3dile/netra-go/internal/adapters/loader"
	"github.com/0xcro3dile/netra-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/netra-go/internal/config"
	"github.com/0xcro3dile/netra-go/internal/domain/ports"
	"github.com/0xcro3dile/netra-go/internal/domain/usecases"
	"github.com/0xcro3dile/netra-go/internal/infrastructure/metrics"
	"github.com/0xcro3dile/netra-go/internal/infrastructure/pool"
)

// app holds the components shared by the commands that touch the
// knowledge base. Everything is released by close, in reverse order.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector
	workers   *pool.Pool
	knowledge *vectordb.KnowledgeBase
	ingest    *usecases.IngestUseCase

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, collector: metrics.NewCollector("netra")}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.workers, err = pool.New("ingest", cfg.Ingest.Workers, logger)
	if err != nil {
		return nil, err
	}
	a.onClose(func() { a.workers.Release(5 * time.Second) })

	embedder, err := a.newEmbedder()
	if err != nil {
		return nil, err
	}
	vectors, err := a.newVectorStore(ctx)
	if err != nil {
		return nil, err
	}
	a.knowledge = vectordb.NewKnowledgeBase(embedder, vectors, cfg.Store.Collection, logger)

	a.ingest = usecases.NewIngestUseCase(
		a.knowledge,
		fetcher.NewHTTPFetcher(cfg.Ingest.FetchTimeout),
		loader.NewMultiLoader(),
		usecases.IngestConfig{
			ChunkSize:     cfg.Ingest.ChunkSize,
			ChunkOverlap:  cfg.Ingest.ChunkOverlap,
			MinTextLength: cfg.Ingest.MinTextLength,
		},
		logger,
		usecases.WithIngestRecorder(a.collector),
	)
	return a, nil
}

func (a *app) onClose(f func()) { a.closers = append(a.closers, f) }

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) newEmbedder() (ports.EmbeddingService, error) {
	e := a.cfg.Embedding
	switch e.Backend {
	case config.EmbeddingOllama:
		return embedding.NewOllamaEmbedder(e.BaseURL, e.Model, a.workers, a.logger), nil
	case config.EmbeddingHash:
		return embedding.NewHashEmbedder(e.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", e.Backend)
	}
}

func (a *app) newVectorStore(ctx context.Context) (ports.VectorStore, error) {
	s := a.cfg.Store
	switch s.Backend {
	case config.StoreMemory:
		return vectordb.NewInMemoryStore(), nil
	case config.StoreSQLite:
		store, err := vectordb.NewSQLiteStore(s.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		a.onClose(func() {
			if err := store.Close(); err != nil {
				a.logger.Warn("closing sqlite store", zap.Error(err))
			}
		})
		return store, nil
	case config.StoreQdrant:
		store, err := vectordb.NewQdrantStore(vectordb.QdrantConfig{
			URL:        s.Qdrant.URL,
			APIKey:     s.Qdrant.APIKey,
			Collection: s.Collection,
			Timeout:    s.Qdrant.Timeout,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to qdrant: %w", err)
		}
		a.onClose(func() {
			if err := store.Close(); err != nil {
				a.logger.Warn("closing qdrant client", zap.Error(err))
			}
		})
		return store, nil
	case config.StoreMilvus:
		store, err := vectordb.NewMilvusStore(ctx, vectordb.MilvusConfig{
			Address:    s.Milvus.Address,
			Username:   s.Milvus.Username,
			Password:   s.Milvus.Password,
			Database:   s.Milvus.Database,
			Collection: s.Collection,
			Timeout:    s.Milvus.Timeout,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		a.onClose(func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := store.Close(closeCtx); err != nil {
				a.logger.Warn("closing milvus client", zap.Error(err))
			}
		})
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", s.Backend)
	}
}

// newCache returns nil when caching is disabled.
func (a *app) newCache(ctx context.Context) (ports.ResponseCache, error) {
	c := a.cfg.Cache
	switch c.Backend {
	case config.CacheNone:
		return nil, nil
	case config.CacheMemory:
		return cache.NewMemory(c.MaxSize, c.TTL, a.logger), nil
	case config.CacheRedis:
		r, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
			MaxSize:  c.MaxSize,
			TTL:      c.TTL,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { _ = r.Close() })
		return r, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", c.Backend)
	}
}

func (a *app) newOrchestrator() (*usecases.RagOrchestrator, ports.GenerationProvider, error) {
	provider, err := llm.New(a.cfg.LLMSettings(), a.logger)
	if err != nil {
		return nil, nil, err
	}

	opts := []usecases.RagOption{usecases.WithRecorder(a.collector)}
	if a.cfg.RAG.Guard.Enabled {
		opts = append(opts, usecases.WithGuard(usecases.NewScoreGuard(a.cfg.RAG.Guard.MinScore)))
	}
	rag := usecases.NewRagOrchestrator(a.knowledge, provider, usecases.RagConfig{
		TopK:                 a.cfg.RAG.TopK,
		MaxQuestionLength:    a.cfg.RAG.MaxQuestionLength,
		ContextPreviewLength: a.cfg.RAG.ContextPreviewLength,
		GenerationTimeout:    a.cfg.RAG.GenerationTimeout,
		Persona:              usecases.DefaultPersona,
	}, a.logger, opts...)
	return rag, provider, nil
}

func (a *app) newSeeder() (*usecases.Seeder, error) {
	entries, err := loader.LoadManifest(a.cfg.Ingest.Manifest)
	if err != nil {
		return nil, err
	}
	return usecases.NewSeeder(a.ingest, a.knowledge, a.cfg.Ingest.SeedDir, entries, a.logger), nil
}
