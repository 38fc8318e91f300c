package usecases

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
	"github.com/0xcro3dile/netra-go/internal/domain/ports"
)

// SeedReport summarizes a seeding run.
type SeedReport struct {
	Files   int
	Chunks  int
	Skipped bool
}

// Seeder loads the bundled scripture corpus into the knowledge store.
type Seeder struct {
	ingest  *IngestUseCase
	store   ports.KnowledgeStore
	dir     string
	entries []entities.SeedEntry
	logger  *zap.Logger
}

// NewSeeder creates a Seeder for the files listed in entries, relative to dir.
func NewSeeder(ingest *IngestUseCase, store ports.KnowledgeStore, dir string, entries []entities.SeedEntry, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		ingest:  ingest,
		store:   store,
		dir:     dir,
		entries: entries,
		logger:  logger.With(zap.String("component", "seeder")),
	}
}

// SeedIfEmpty seeds only when the store holds no chunks.
func (s *Seeder) SeedIfEmpty(ctx context.Context) (SeedReport, error) {
	return s.Seed(ctx, false)
}

// Seed loads every manifest entry. Without force, a non-empty store is left
// alone; with force, the store is cleared first. Unreadable files are
// logged and skipped.
func (s *Seeder) Seed(ctx context.Context, force bool) (SeedReport, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return SeedReport{}, entities.NewError(entities.ErrStoreUnavailable, "could not read store stats").WithCause(err)
	}

	if stats.TotalChunks > 0 {
		if !force {
			s.logger.Info("knowledge base already populated", zap.Int("chunks", stats.TotalChunks))
			return SeedReport{Skipped: true}, nil
		}
		if err := s.store.Clear(ctx); err != nil {
			return SeedReport{}, entities.NewError(entities.ErrStoreUnavailable, "could not clear store").WithCause(err)
		}
	}

	var report SeedReport
	for _, e := range s.entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		n, err := s.ingest.IngestFile(ctx, filepath.Join(s.dir, e.File), e.SourceID)
		if err != nil {
			s.logger.Warn("skipping scripture file", zap.String("file", e.File), zap.Error(err))
			continue
		}
		report.Files++
		report.Chunks += n
	}

	s.logger.Info("seeded scriptures", zap.Int("files", report.Files), zap.Int("chunks", report.Chunks))
	return report, nil
}
