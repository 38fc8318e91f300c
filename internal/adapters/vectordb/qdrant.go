package vectordb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

const (
	defaultQdrantPort = 6334 // gRPC
	qdrantScrollPage  = 256

	qdrantKeyChunkID = "chunk_id"
	qdrantKeySource  = "source_id"
	qdrantKeyIndex   = "chunk_index"
	qdrantKeyText    = "text"
)

// QdrantConfig configures the Qdrant backend. URL is host:port of the gRPC
// endpoint; an http(s):// prefix is accepted and https enables TLS.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// qdrantAPI is the part of *qdrant.Client the store uses.
type qdrantAPI interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, collectionName string) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error)
	Scroll(ctx context.Context, request *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, error)
	Close() error
}

// QdrantStore keeps chunks in one Qdrant collection using cosine distance.
// The collection is created on first write, once the embedding width is
// known.
type QdrantStore struct {
	client     qdrantAPI
	collection string
	timeout    time.Duration
	logger     *zap.Logger

	mu    sync.Mutex
	ready bool
}

// NewQdrantStore connects to Qdrant over gRPC.
func NewQdrantStore(cfg QdrantConfig, logger *zap.Logger) (*QdrantStore, error) {
	host, port, useTLS, err := parseQdrantAddress(cfg.URL)
	if err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client for %s: %w", cfg.URL, err)
	}
	return newQdrantStore(client, cfg, logger), nil
}

func newQdrantStore(client qdrantAPI, cfg QdrantConfig, logger *zap.Logger) *QdrantStore {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		timeout:    cfg.Timeout,
		logger:     logger.With(zap.String("store", "qdrant"), zap.String("collection", cfg.Collection)),
	}
}

// parseQdrantAddress splits "host", "host:port" or "scheme://host:port".
func parseQdrantAddress(raw string) (host string, port int, useTLS bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "localhost", defaultQdrantPort, false, nil
	}
	if strings.Contains(raw, "://") {
		u, perr := url.Parse(raw)
		if perr != nil {
			return "", 0, false, fmt.Errorf("parsing qdrant url %q: %w", raw, perr)
		}
		useTLS = u.Scheme == "https"
		raw = u.Host
	}
	raw = strings.TrimRight(raw, "/")

	h, p, serr := net.SplitHostPort(raw)
	if serr != nil {
		return raw, defaultQdrantPort, useTLS, nil
	}
	port, err = strconv.Atoi(p)
	if err != nil {
		return "", 0, false, fmt.Errorf("qdrant port %q: %w", p, err)
	}
	return h, port, useTLS, nil
}

func (s *QdrantStore) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// ensureCollection creates the collection if it does not exist yet.
func (s *QdrantStore) ensureCollection(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if dimension <= 0 {
		return errors.New("qdrant: invalid vector dimension")
	}

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking qdrant collection: %w", err)
	}
	if !exists {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("creating qdrant collection: %w", err)
		}
		s.logger.Info("created collection", zap.Int("dimension", dimension))
	}
	s.ready = true
	return nil
}

// readable reports whether the collection exists, without creating it.
func (s *QdrantStore) readable(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return true, nil
	}
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("checking qdrant collection: %w", err)
	}
	s.ready = exists
	return exists, nil
}

// PointID derives a stable Qdrant point id from a chunk id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("netra:"+chunkID)).String()
}

func qdrantPoints(chunks []entities.Chunk) []*qdrant.PointStruct {
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(c.ID)),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: map[string]*qdrant.Value{
				qdrantKeyChunkID: qdrant.NewValueString(c.ID),
				qdrantKeySource:  qdrant.NewValueString(c.SourceID),
				qdrantKeyIndex:   qdrant.NewValueInt(int64(c.Index)),
				qdrantKeyText:    qdrant.NewValueString(c.Content),
			},
		}
	}
	return points
}

// Store upserts chunks as points.
func (s *QdrantStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ctx, cancel := s.call(ctx)
	defer cancel()

	if err := s.ensureCollection(ctx, len(chunks[0].Embedding)); err != nil {
		return err
	}
	return s.upsert(ctx, chunks)
}

func (s *QdrantStore) upsert(ctx context.Context, chunks []entities.Chunk) error {
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrantPoints(chunks),
	})
	if err != nil {
		return fmt.Errorf("upserting qdrant points: %w", err)
	}
	return nil
}

// Replace upserts the new chunks of sourceID, then drops its chunks past the
// new count. A failed upsert leaves the previous version in place.
func (s *QdrantStore) Replace(ctx context.Context, sourceID string, chunks []entities.Chunk) error {
	ctx, cancel := s.call(ctx)
	defer cancel()

	if len(chunks) == 0 {
		return s.deleteWhere(ctx, sourceFilter(sourceID))
	}
	if err := s.ensureCollection(ctx, len(chunks[0].Embedding)); err != nil {
		return err
	}
	if err := s.upsert(ctx, chunks); err != nil {
		return err
	}

	stale := sourceFilter(sourceID)
	stale.Must = append(stale.Must, qdrant.NewRange(qdrantKeyIndex, &qdrant.Range{
		Gte: qdrant.PtrOf(float64(len(chunks))),
	}))
	if err := s.deleteWhere(ctx, stale); err != nil {
		return fmt.Errorf("pruning stale chunks of %q: %w", sourceID, err)
	}
	return nil
}

// Search returns the nearest points. A missing collection yields no results.
func (s *QdrantStore) Search(ctx context.Context, embedding []float32, k int) ([]entities.QueryResult, error) {
	if k <= 0 {
		return []entities.QueryResult{}, nil
	}
	ctx, cancel := s.call(ctx)
	defer cancel()

	ok, err := s.readable(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []entities.QueryResult{}, nil
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying qdrant: %w", err)
	}

	results := make([]entities.QueryResult, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		results = append(results, entities.QueryResult{
			Chunk: entities.Chunk{
				ID:       payload[qdrantKeyChunkID].GetStringValue(),
				SourceID: payload[qdrantKeySource].GetStringValue(),
				Index:    int(payload[qdrantKeyIndex].GetIntegerValue()),
				Content:  payload[qdrantKeyText].GetStringValue(),
			},
			Score: float64(p.GetScore()),
		})
	}
	return results, nil
}

func sourceFilter(sourceID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(qdrantKeySource, sourceID)},
	}
}

func (s *QdrantStore) deleteWhere(ctx context.Context, filter *qdrant.Filter) error {
	ok, err := s.readable(ctx)
	if err != nil || !ok {
		return err
	}
	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		return fmt.Errorf("deleting qdrant points: %w", err)
	}
	return nil
}

// Delete removes every point of a source.
func (s *QdrantStore) Delete(ctx context.Context, sourceID string) error {
	ctx, cancel := s.call(ctx)
	defer cancel()
	return s.deleteWhere(ctx, sourceFilter(sourceID))
}

// Clear drops the collection; the next write recreates it.
func (s *QdrantStore) Clear(ctx context.Context) error {
	ctx, cancel := s.call(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking qdrant collection: %w", err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("dropping qdrant collection: %w", err)
		}
	}
	s.ready = false
	return nil
}

// Count returns the exact point count and the number of distinct sources,
// scrolling source ids page by page.
func (s *QdrantStore) Count(ctx context.Context) (int, int, error) {
	ctx, cancel := s.call(ctx)
	defer cancel()

	ok, err := s.readable(ctx)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, nil
	}

	total, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, 0, fmt.Errorf("counting qdrant points: %w", err)
	}

	// Scroll offsets are inclusive: ask for one extra point and start the
	// next page from it.
	sources := make(map[string]struct{})
	var offset *qdrant.PointId
	for {
		page, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(qdrantScrollPage + 1)),
			WithPayload:    qdrant.NewWithPayloadInclude(qdrantKeySource),
		})
		if err != nil {
			return 0, 0, fmt.Errorf("scrolling qdrant points: %w", err)
		}
		offset = nil
		if len(page) > qdrantScrollPage {
			offset = page[qdrantScrollPage].GetId()
			page = page[:qdrantScrollPage]
		}
		for _, p := range page {
			sources[p.GetPayload()[qdrantKeySource].GetStringValue()] = struct{}{}
		}
		if offset == nil {
			break
		}
	}
	return int(total), len(sources), nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
