package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

func newTestSeeder(t *testing.T, store *recordingStore) *Seeder {
	loader := &stubLoader{files: map[string]string{
		"corpus/vbt.txt":  verse,
		"corpus/japa.txt": verse + " Repeat the name softly.",
	}}
	ingest := NewIngestUseCase(store, nil, loader, IngestConfig{}, nil)
	entries := []entities.SeedEntry{
		{File: "vbt.txt", SourceID: "Vijnana Bhairava Tantra"},
		{File: "japa.txt", SourceID: "Japa Sutra"},
		{File: "missing.txt", SourceID: "Missing"},
	}
	return NewSeeder(ingest, store, "corpus", entries, zaptest.NewLogger(t))
}

func TestSeeder_SeedsEmptyStore(t *testing.T) {
	store := newRecordingStore()
	s := newTestSeeder(t, store)

	report, err := s.SeedIfEmpty(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Skipped)
	assert.Equal(t, 2, report.Files)
	assert.Equal(t, 2, report.Chunks)
	assert.Contains(t, store.sources, "Vijnana Bhairava Tantra")
	assert.Contains(t, store.sources, "Japa Sutra")
}

func TestSeeder_SkipsPopulatedStore(t *testing.T) {
	store := newRecordingStore()
	store.sources["existing"] = []string{"chunk"}
	s := newTestSeeder(t, store)

	report, err := s.SeedIfEmpty(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Len(t, store.sources, 1)
}

func TestSeeder_ForceClearsFirst(t *testing.T) {
	store := newRecordingStore()
	store.sources["existing"] = []string{"chunk"}
	s := newTestSeeder(t, store)

	report, err := s.Seed(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, 1, store.cleared)
	assert.Equal(t, 2, report.Files)
	assert.NotContains(t, store.sources, "existing")
}

func TestSeeder_StatsFailure(t *testing.T) {
	store := newRecordingStore()
	store.statsErr = errors.New("down")
	s := newTestSeeder(t, store)

	_, err := s.SeedIfEmpty(context.Background())
	assert.True(t, entities.IsCode(err, entities.ErrStoreUnavailable))
}
