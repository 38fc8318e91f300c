package vectordb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

const (
	milvusFieldID        = "id"
	milvusFieldVector    = "embedding"
	milvusFieldSource    = "source_id"
	milvusFieldContent   = "content"
	milvusFieldIndex     = "chunk_index"
	milvusMaxContentLen  = 65535
	milvusMaxSourceLen   = 512
	milvusCountScanLimit = 16384
)

// MilvusConfig configures the Milvus backend.
type MilvusConfig struct {
	Address    string
	Username   string
	Password   string
	Database   string
	Collection string
	Timeout    time.Duration
}

// MilvusStore keeps chunks in a Milvus collection with an IVF_FLAT cosine
// index. Like QdrantStore it creates the collection on first write.
type MilvusStore struct {
	client     *milvusclient.Client
	collection string
	logger     *zap.Logger

	mu    sync.Mutex
	ready bool
}

// NewMilvusStore connects to Milvus.
func NewMilvusStore(ctx context.Context, cfg MilvusConfig, logger *zap.Logger) (*MilvusStore, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	c, err := milvusclient.New(dialCtx, &milvusclient.ClientConfig{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to milvus: %w", err)
	}

	return &MilvusStore{
		client:     c,
		collection: cfg.Collection,
		logger:     logger.With(zap.String("store", "milvus"), zap.String("collection", cfg.Collection)),
	}, nil
}

func (s *MilvusStore) exists(ctx context.Context) (bool, error) {
	ok, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(s.collection))
	if err != nil {
		return false, fmt.Errorf("checking collection: %w", err)
	}
	return ok, nil
}

func (s *MilvusStore) ensureCollection(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	ok, err := s.exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		if err := s.createCollection(ctx, dimension); err != nil {
			return err
		}
	}
	if err := s.load(ctx); err != nil {
		return err
	}
	s.ready = true
	return nil
}

func (s *MilvusStore) createCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("milvus: invalid vector dimension")
	}

	schema := entity.NewSchema().
		WithName(s.collection).
		WithDescription("scripture chunks").
		WithField(entity.NewField().
			WithName(milvusFieldID).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(64).
			WithIsPrimaryKey(true)).
		WithField(entity.NewField().
			WithName(milvusFieldVector).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dimension))).
		WithField(entity.NewField().
			WithName(milvusFieldSource).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(milvusMaxSourceLen)).
		WithField(entity.NewField().
			WithName(milvusFieldContent).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(milvusMaxContentLen)).
		WithField(entity.NewField().
			WithName(milvusFieldIndex).
			WithDataType(entity.FieldTypeInt64))

	if err := s.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(s.collection, schema)); err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	idx := index.NewIvfFlatIndex(entity.COSINE, 128)
	task, err := s.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(s.collection, milvusFieldVector, idx))
	if err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("waiting for index: %w", err)
	}

	s.logger.Info("created collection", zap.Int("dimension", dimension))
	return nil
}

func (s *MilvusStore) load(ctx context.Context) error {
	task, err := s.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(s.collection))
	if err != nil {
		return fmt.Errorf("loading collection: %w", err)
	}
	if err := task.Await(ctx); err != nil {
		return fmt.Errorf("waiting for collection load: %w", err)
	}
	return nil
}

// milvusColumns converts chunks to insert columns.
func milvusColumns(chunks []entities.Chunk) ([]column.Column, error) {
	dim := len(chunks[0].Embedding)
	ids := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	sources := make([]string, len(chunks))
	contents := make([]string, len(chunks))
	indexes := make([]int64, len(chunks))

	for i, c := range chunks {
		if len(c.Embedding) != dim {
			return nil, fmt.Errorf("chunk %s has dimension %d, want %d", c.ID, len(c.Embedding), dim)
		}
		if len(c.Content) > milvusMaxContentLen {
			return nil, fmt.Errorf("chunk %s exceeds %d bytes", c.ID, milvusMaxContentLen)
		}
		ids[i] = c.ID
		vectors[i] = c.Embedding
		sources[i] = c.SourceID
		contents[i] = c.Content
		indexes[i] = int64(c.Index)
	}

	return []column.Column{
		column.NewColumnVarChar(milvusFieldID, ids),
		column.NewColumnFloatVector(milvusFieldVector, dim, vectors),
		column.NewColumnVarChar(milvusFieldSource, sources),
		column.NewColumnVarChar(milvusFieldContent, contents),
		column.NewColumnInt64(milvusFieldIndex, indexes),
	}, nil
}

// Store inserts chunks and flushes so they are searchable immediately.
func (s *MilvusStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(chunks[0].Embedding)); err != nil {
		return err
	}

	cols, err := milvusColumns(chunks)
	if err != nil {
		return err
	}
	if _, err := s.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(s.collection, cols...)); err != nil {
		return fmt.Errorf("inserting into milvus: %w", err)
	}

	flush, err := s.client.Flush(ctx, milvusclient.NewFlushOption(s.collection))
	if err != nil {
		return fmt.Errorf("flushing collection: %w", err)
	}
	return flush.Await(ctx)
}

// Replace upserts the chunks of sourceID, then deletes its chunks past the
// new count. A failed upsert leaves the previous version in place.
func (s *MilvusStore) Replace(ctx context.Context, sourceID string, chunks []entities.Chunk) error {
	if len(chunks) == 0 {
		return s.Delete(ctx, sourceID)
	}
	if err := s.ensureCollection(ctx, len(chunks[0].Embedding)); err != nil {
		return err
	}

	cols, err := milvusColumns(chunks)
	if err != nil {
		return err
	}
	if _, err := s.client.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(s.collection, cols...)); err != nil {
		return fmt.Errorf("upserting into milvus: %w", err)
	}
	if _, err := s.client.Delete(ctx, milvusclient.NewDeleteOption(s.collection).WithExpr(staleExpr(sourceID, len(chunks)))); err != nil {
		return fmt.Errorf("pruning stale chunks of %q: %w", sourceID, err)
	}

	flush, err := s.client.Flush(ctx, milvusclient.NewFlushOption(s.collection))
	if err != nil {
		return fmt.Errorf("flushing collection: %w", err)
	}
	return flush.Await(ctx)
}

// Search performs a cosine ANN search.
func (s *MilvusStore) Search(ctx context.Context, embedding []float32, k int) ([]entities.QueryResult, error) {
	if k <= 0 {
		return []entities.QueryResult{}, nil
	}
	if err := s.ensureLoaded(ctx); err != nil {
		if errors.Is(err, errNoCollection) {
			return []entities.QueryResult{}, nil
		}
		return nil, err
	}

	results, err := s.client.Search(ctx, milvusclient.NewSearchOption(
		s.collection,
		k,
		[]entity.Vector{entity.FloatVector(embedding)},
	).WithANNSField(milvusFieldVector).
		WithSearchParam("nprobe", "16").
		WithOutputFields(milvusFieldID, milvusFieldSource, milvusFieldContent, milvusFieldIndex))
	if err != nil {
		return nil, fmt.Errorf("searching milvus: %w", err)
	}
	if len(results) == 0 {
		return []entities.QueryResult{}, nil
	}

	rs := results[0]
	out := make([]entities.QueryResult, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		out[i].Score = float64(rs.Scores[i])
	}
	for _, field := range rs.Fields {
		switch col := field.(type) {
		case *column.ColumnVarChar:
			data := col.Data()
			for i := 0; i < rs.ResultCount && i < len(data); i++ {
				switch col.Name() {
				case milvusFieldID:
					out[i].Chunk.ID = data[i]
				case milvusFieldSource:
					out[i].Chunk.SourceID = data[i]
				case milvusFieldContent:
					out[i].Chunk.Content = data[i]
				}
			}
		case *column.ColumnInt64:
			data := col.Data()
			for i := 0; i < rs.ResultCount && i < len(data); i++ {
				if col.Name() == milvusFieldIndex {
					out[i].Chunk.Index = int(data[i])
				}
			}
		}
	}
	return out, nil
}

var errNoCollection = errors.New("milvus: collection does not exist")

// ensureLoaded loads an existing collection for reads without creating one.
func (s *MilvusStore) ensureLoaded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	ok, err := s.exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errNoCollection
	}
	if err := s.load(ctx); err != nil {
		return err
	}
	s.ready = true
	return nil
}

// sourceExpr builds a boolean filter matching one source id.
func sourceExpr(sourceID string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(sourceID)
	return fmt.Sprintf(`%s == "%s"`, milvusFieldSource, escaped)
}

// staleExpr matches the chunks of a source at or past index n.
func staleExpr(sourceID string, n int) string {
	return fmt.Sprintf("%s && %s >= %d", sourceExpr(sourceID), milvusFieldIndex, n)
}

// Delete removes every chunk of a source.
func (s *MilvusStore) Delete(ctx context.Context, sourceID string) error {
	if err := s.ensureLoaded(ctx); err != nil {
		if errors.Is(err, errNoCollection) {
			return nil
		}
		return err
	}
	if _, err := s.client.Delete(ctx, milvusclient.NewDeleteOption(s.collection).WithExpr(sourceExpr(sourceID))); err != nil {
		return fmt.Errorf("deleting source %q: %w", sourceID, err)
	}
	return nil
}

// Clear drops the collection; the next write recreates it.
func (s *MilvusStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.exists(ctx)
	if err != nil {
		return err
	}
	if ok {
		if err := s.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(s.collection)); err != nil {
			return fmt.Errorf("dropping collection: %w", err)
		}
	}
	s.ready = false
	return nil
}

// Count scans source ids to report chunk and distinct source totals.
func (s *MilvusStore) Count(ctx context.Context) (int, int, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		if errors.Is(err, errNoCollection) {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	rs, err := s.client.Query(ctx, milvusclient.NewQueryOption(s.collection).
		WithFilter(milvusFieldIndex+" >= 0").
		WithOutputFields(milvusFieldSource).
		WithLimit(milvusCountScanLimit))
	if err != nil {
		return 0, 0, fmt.Errorf("querying milvus: %w", err)
	}

	var ids []string
	for _, field := range rs.Fields {
		if col, ok := field.(*column.ColumnVarChar); ok && col.Name() == milvusFieldSource {
			ids = col.Data()
		}
	}
	return len(ids), countDistinct(ids), nil
}

func countDistinct(ids []string) int {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}

// Close disconnects from Milvus.
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}
