// Package http serves the chat API: atomic and streamed answers, URL
// learning, knowledge base and cache statistics, and Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
	"github.com/0xcro3dile/netra-go/internal/domain/ports"
	"github.com/0xcro3dile/netra-go/internal/infrastructure/metrics"
)

// Answerer produces answers. Satisfied by usecases.RagOrchestrator.
type Answerer interface {
	Answer(ctx context.Context, question string) (<-chan entities.AnswerChunk, error)
	AnswerOnce(ctx context.Context, question string) (*entities.Answer, error)
}

// Learner ingests a web page. Satisfied by usecases.IngestUseCase.
type Learner interface {
	Learn(ctx context.Context, url string) (entities.IngestedSource, error)
}

// Config holds the server settings.
type Config struct {
	Addr               string
	Version            string
	ProviderName       string
	CORSOrigins        []string
	RateLimitPerMinute int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
}

// Server is the HTTP front of the assistant.
type Server struct {
	cfg      Config
	answerer Answerer
	learner  Learner
	store    ports.KnowledgeStore
	cache    ports.ResponseCache
	metrics  *metrics.Collector
	logger   *zap.Logger
	audit    *zap.Logger
}

// NewServer wires the handlers. learner, cache and collector may be nil;
// the matching endpoints then degrade or disappear.
func NewServer(
	cfg Config,
	answerer Answerer,
	learner Learner,
	store ports.KnowledgeStore,
	cache ports.ResponseCache,
	collector *metrics.Collector,
	logger *zap.Logger,
) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 20
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 300 * time.Second // streaming answers
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		answerer: answerer,
		learner:  learner,
		store:    store,
		cache:    cache,
		metrics:  collector,
		logger:   logger.With(zap.String("component", "http")),
		audit:    logger.Named("audit"),
	}
}

// Handler builds the routed, middleware-wrapped handler. ctx bounds the
// rate limiter's background cleanup.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	limit := func(h http.HandlerFunc) http.Handler {
		return RateLimiter(ctx, s.cfg.RateLimitPerMinute, s.audit)(h)
	}

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /cache-stats", s.handleCacheStats)
	mux.Handle("POST /chat", limit(s.handleChat))

	stream := limit(s.handleChatStream)
	mux.Handle("POST /chat/stream", stream)
	mux.Handle("GET /chat/stream", stream)

	if s.learner != nil {
		mux.Handle("POST /learn", limit(s.handleLearn))
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		RequestLogger(s.logger),
	}
	if s.metrics != nil {
		middlewares = append(middlewares, MetricsMiddleware(s.metrics))
	}
	middlewares = append(middlewares, SecurityHeaders(), CORS(s.cfg.CORSOrigins))

	return Chain(mux, middlewares...)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Namaste. Welcome to Netra API.",
		"health":  "/health",
		"stream":  "/chat/stream",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":       "healthy",
		"version":      s.cfg.Version,
		"llm_provider": s.cfg.ProviderName,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, entities.NewError(entities.ErrStoreUnavailable, "knowledge base unavailable").WithCause(err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusOK, ports.CacheStats{Backend: "disabled", HitRate: "0.0%"})
		return
	}
	writeJSON(w, http.StatusOK, s.cache.Stats(r.Context()))
}

type chatRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := r.Context()

	if s.cache != nil && strings.TrimSpace(req.Question) != "" {
		cached, ok := s.cache.Get(ctx, req.Question)
		s.cacheLookup(ok)
		if ok {
			s.logger.Debug("answer served from cache")
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	answer, err := s.answerer.AnswerOnce(ctx, req.Question)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.writeError(w, r, err)
		return
	}
	if s.cache != nil {
		s.cache.Set(ctx, req.Question, answer)
	}
	writeJSON(w, http.StatusOK, answer)
}

// handleChatStream accepts {"question"} by POST or ?q= by GET (EventSource).
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var question string
	if r.Method == http.MethodGet {
		question = r.URL.Query().Get("q")
		if question == "" {
			question = r.URL.Query().Get("question")
		}
	} else {
		var req chatRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		question = req.Question
	}

	ctx := r.Context()
	chunks, err := s.answerer.Answer(ctx, question)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sse := newSSEWriter(w)
	for c := range chunks {
		if err := sse.send(c); err != nil {
			// The orchestrator observes the cancelled request context once
			// this handler returns.
			s.logger.Debug("stream write failed", zap.Error(err))
			return
		}
	}
}

type learnRequest struct {
	URL string `json:"url"`
}

type learnResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	ChunksAdded int    `json:"chunks_added"`
}

func (s *Server) handleLearn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateURL(req.URL); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.audit.Info("LEARN_REQUEST", zap.String("url", req.URL), zap.String("ip", ClientIP(r)))
	src, err := s.learner.Learn(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, learnResponse{
		Status:      "success",
		Message:     fmt.Sprintf("Learned %d chunks from %s", src.ChunkCount, src.URL),
		ChunksAdded: src.ChunkCount,
	})
}

func (s *Server) cacheLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.CacheLookup(hit)
	}
}

func validateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return entities.Errorf(entities.ErrInvalidInput, "invalid url %q: an absolute http(s) url is required", raw)
	}
	return nil
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return entities.NewError(entities.ErrInvalidInput, "invalid request body").WithCause(err)
	}
	return nil
}
