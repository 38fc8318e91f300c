package usecases

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
	"github.com/0xcro3dile/netra-go/internal/domain/ports"
)

// IngestConfig controls chunking.
type IngestConfig struct {
	ChunkSize     int
	ChunkOverlap  int
	MinTextLength int
}

// IngestUseCase feeds scripture text into the knowledge store.
type IngestUseCase struct {
	store    ports.KnowledgeStore
	fetcher  ports.DocumentFetcher
	loader   ports.DocumentLoader
	cfg      IngestConfig
	recorder ports.IngestRecorder
	logger   *zap.Logger
}

// IngestOption customizes an IngestUseCase.
type IngestOption func(*IngestUseCase)

// WithIngestRecorder reports stored chunk counts to r.
func WithIngestRecorder(r ports.IngestRecorder) IngestOption {
	return func(uc *IngestUseCase) {
		if r != nil {
			uc.recorder = r
		}
	}
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
// fetcher and loader may be nil when the caller never learns URLs or files.
func NewIngestUseCase(
	store ports.KnowledgeStore,
	fetcher ports.DocumentFetcher,
	loader ports.DocumentLoader,
	cfg IngestConfig,
	logger *zap.Logger,
	opts ...IngestOption,
) *IngestUseCase {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = defaultChunkOverlap
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = defaultMinTextLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &IngestUseCase{
		store:    store,
		fetcher:  fetcher,
		loader:   loader,
		cfg:      cfg,
		recorder: nopIngestRecorder{},
		logger:   logger.With(zap.String("component", "ingest")),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Learn fetches a URL, chunks its text and stores it under the URL.
func (uc *IngestUseCase) Learn(ctx context.Context, url string) (entities.IngestedSource, error) {
	if uc.fetcher == nil {
		return entities.IngestedSource{}, entities.NewError(entities.ErrIngestFailed, "url ingestion is not configured")
	}
	doc, err := uc.fetcher.Fetch(ctx, url)
	if err != nil {
		return entities.IngestedSource{}, entities.NewError(entities.ErrIngestFailed, "could not fetch url").WithCause(err)
	}

	n, err := uc.IngestText(ctx, doc.Content, url)
	if err != nil {
		return entities.IngestedSource{}, err
	}
	return entities.IngestedSource{URL: url, ChunkCount: n}, nil
}

// IngestText chunks text and replaces the chunks stored for sourceID.
func (uc *IngestUseCase) IngestText(ctx context.Context, text, sourceID string) (int, error) {
	chunks := ChunkText(text, uc.cfg.ChunkSize, uc.cfg.ChunkOverlap, uc.cfg.MinTextLength)
	if len(chunks) == 0 {
		return 0, entities.Errorf(entities.ErrIngestFailed,
			"not enough text to learn from %s (minimum %d characters)", sourceID, uc.cfg.MinTextLength)
	}

	n, err := uc.store.Upsert(ctx, chunks, sourceID)
	if err != nil {
		return 0, entities.NewError(entities.ErrStoreUnavailable, "could not store chunks").WithCause(err)
	}

	uc.recorder.ChunksIngested(n)
	uc.logger.Info("source ingested", zap.String("source", sourceID), zap.Int("chunks", n))
	return n, nil
}

// IngestFile loads a local document and stores it under sourceID, or under
// the file name when sourceID is empty.
func (uc *IngestUseCase) IngestFile(ctx context.Context, path, sourceID string) (int, error) {
	if uc.loader == nil {
		return 0, entities.NewError(entities.ErrIngestFailed, "file ingestion is not configured")
	}
	doc, err := uc.loader.Load(ctx, path)
	if err != nil {
		return 0, entities.NewError(entities.ErrIngestFailed, "could not load file").WithCause(err)
	}
	if sourceID == "" {
		sourceID = filepath.Base(path)
	}
	return uc.IngestText(ctx, doc.Content, sourceID)
}

// Forget removes a source from the store.
func (uc *IngestUseCase) Forget(ctx context.Context, sourceID string) error {
	if err := uc.store.Delete(ctx, sourceID); err != nil {
		return entities.NewError(entities.ErrStoreUnavailable, "could not delete source").WithCause(err)
	}
	uc.logger.Info("source forgotten", zap.String("source", sourceID))
	return nil
}

type nopIngestRecorder struct{}

func (nopIngestRecorder) ChunksIngested(int) {}
