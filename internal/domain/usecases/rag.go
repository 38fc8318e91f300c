// Package usecases contains the application rules: answering questions over
// the knowledge store and feeding it with scripture text.
package usecases

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
	"github.com/0xcro3dile/netra-go/internal/domain/ports"
)

const (
	defaultTopK              = 3
	defaultMaxQuestionLength = 2000
	defaultPreviewLength     = 200
	defaultGenerationTimeout = 30 * time.Second
)

// Answer modes and outcomes reported to the AnswerRecorder.
const (
	ModeStream = "stream"
	ModeOnce   = "once"

	OutcomeDone      = "done"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
	OutcomeRejected  = "rejected"
	OutcomeInvalid   = "invalid"
)

// RagConfig tunes the orchestrator. Zero values take the defaults.
type RagConfig struct {
	TopK                 int
	MaxQuestionLength    int
	ContextPreviewLength int
	GenerationTimeout    time.Duration
	Persona              string
}

// RagOrchestrator turns a question into a grounded answer.
// It holds no per-request state and is safe for concurrent use.
type RagOrchestrator struct {
	store    ports.KnowledgeStore
	provider ports.GenerationProvider
	guard    RelevanceGuard
	recorder ports.AnswerRecorder
	cfg      RagConfig
	logger   *zap.Logger
}

// RagOption customizes a RagOrchestrator.
type RagOption func(*RagOrchestrator)

// WithGuard installs a relevance guard between retrieval and composition.
func WithGuard(g RelevanceGuard) RagOption {
	return func(o *RagOrchestrator) { o.guard = g }
}

// WithRecorder reports outcomes to r.
func WithRecorder(r ports.AnswerRecorder) RagOption {
	return func(o *RagOrchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// NewRagOrchestrator wires the orchestrator with its collaborators.
func NewRagOrchestrator(
	store ports.KnowledgeStore,
	provider ports.GenerationProvider,
	cfg RagConfig,
	logger *zap.Logger,
	opts ...RagOption,
) *RagOrchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.MaxQuestionLength <= 0 {
		cfg.MaxQuestionLength = defaultMaxQuestionLength
	}
	if cfg.ContextPreviewLength <= 0 {
		cfg.ContextPreviewLength = defaultPreviewLength
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = defaultGenerationTimeout
	}
	if cfg.Persona == "" {
		cfg.Persona = DefaultPersona
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &RagOrchestrator{
		store:    store,
		provider: provider,
		recorder: nopRecorder{},
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "rag"), zap.String("provider", provider.Name())),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Answer validates the question and returns a stream of answer chunks.
// Validation failures are returned directly and touch no collaborator.
// The stream ends with exactly one terminal chunk, except when ctx is
// cancelled: then it closes without one.
func (o *RagOrchestrator) Answer(ctx context.Context, question string) (<-chan entities.AnswerChunk, error) {
	q, err := o.validate(question)
	if err != nil {
		o.recorder.ObserveAnswer(ModeStream, OutcomeInvalid)
		return nil, err
	}

	out := make(chan entities.AnswerChunk)
	go o.stream(ctx, q, out)
	return out, nil
}

// AnswerOnce runs the same pipeline with a single blocking generation.
func (o *RagOrchestrator) AnswerOnce(ctx context.Context, question string) (*entities.Answer, error) {
	q, err := o.validate(question)
	if err != nil {
		o.recorder.ObserveAnswer(ModeOnce, OutcomeInvalid)
		return nil, err
	}
	log := o.logger.With(zap.String("mode", ModeOnce))

	rc, err := o.retrieve(ctx, log, q)
	if err != nil {
		o.cancelled(log, ModeOnce)
		return nil, err
	}

	if reply, rejected := o.checkGuard(log, q, rc); rejected {
		o.recorder.ObserveAnswer(ModeOnce, OutcomeRejected)
		return &entities.Answer{Response: reply, ContextUsed: "", Sources: []string{}}, nil
	}

	serialized := SerializeContext(rc)
	env := ComposePrompt(o.cfg.Persona, rc, q)

	genCtx, cancel := context.WithTimeout(ctx, o.cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	text, err := o.provider.Generate(genCtx, env.SystemPrompt, env.UserQuery)
	if err != nil {
		if ctx.Err() != nil {
			o.cancelled(log, ModeOnce)
			return nil, ctx.Err()
		}
		o.generationFailed(log, ModeOnce, err)
		return nil, entities.NewError(entities.ErrGenerationFailed, entities.GenericGenerationMessage).WithCause(err)
	}
	o.recorder.ObserveGeneration(o.provider.Name(), time.Since(start))
	o.recorder.ObserveAnswer(ModeOnce, OutcomeDone)

	return &entities.Answer{
		Response:    text,
		ContextUsed: ContextPreview(serialized, o.cfg.ContextPreviewLength),
		Sources:     rc.Sources(),
	}, nil
}

func (o *RagOrchestrator) stream(ctx context.Context, q string, out chan<- entities.AnswerChunk) {
	defer close(out)
	log := o.logger.With(zap.String("mode", ModeStream))

	rc, err := o.retrieve(ctx, log, q)
	if err != nil {
		o.cancelled(log, ModeStream)
		return
	}

	if reply, rejected := o.checkGuard(log, q, rc); rejected {
		if o.emit(ctx, out, entities.TokenChunk(reply)) && o.emit(ctx, out, entities.DoneChunk(nil)) {
			o.recorder.ObserveAnswer(ModeStream, OutcomeRejected)
			return
		}
		o.cancelled(log, ModeStream)
		return
	}

	env := ComposePrompt(o.cfg.Persona, rc, q)

	genCtx, cancel := context.WithTimeout(ctx, o.cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	tokens, err := o.provider.GenerateStream(genCtx, env.SystemPrompt, env.UserQuery)
	if err == nil {
		err = o.pump(ctx, genCtx, tokens, out)
	}

	switch {
	case errors.Is(err, errStreamCancelled) || ctx.Err() != nil:
		o.cancelled(log, ModeStream)
	case err != nil:
		o.generationFailed(log, ModeStream, err)
		if o.emit(ctx, out, entities.ErrorChunk(entities.GenericGenerationMessage)) {
			o.recorder.ObserveAnswer(ModeStream, OutcomeError)
		}
	default:
		o.recorder.ObserveGeneration(o.provider.Name(), time.Since(start))
		if o.emit(ctx, out, entities.DoneChunk(rc.Sources())) {
			o.recorder.ObserveAnswer(ModeStream, OutcomeDone)
			return
		}
		o.cancelled(log, ModeStream)
	}
}

var errStreamCancelled = errors.New("stream cancelled by client")

// pump forwards provider tokens until the provider closes its channel.
// A close caused by the generation deadline is reported as an error.
func (o *RagOrchestrator) pump(ctx, genCtx context.Context, tokens <-chan ports.StreamToken, out chan<- entities.AnswerChunk) error {
	for {
		select {
		case <-ctx.Done():
			return errStreamCancelled
		case tok, ok := <-tokens:
			if !ok {
				if ctx.Err() != nil {
					return errStreamCancelled
				}
				return genCtx.Err()
			}
			if tok.Error != nil {
				return tok.Error
			}
			if tok.Content == "" {
				continue
			}
			if !o.emit(ctx, out, entities.TokenChunk(tok.Content)) {
				return errStreamCancelled
			}
			o.recorder.TokenStreamed()
		}
	}
}

// emit sends c unless ctx is already cancelled.
func (o *RagOrchestrator) emit(ctx context.Context, out chan<- entities.AnswerChunk, c entities.AnswerChunk) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case out <- c:
		return true
	}
}

func (o *RagOrchestrator) validate(question string) (string, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return "", entities.NewError(entities.ErrInvalidInput, "question must not be empty")
	}
	if n := utf8.RuneCountInString(q); n > o.cfg.MaxQuestionLength {
		return "", entities.Errorf(entities.ErrInvalidInput,
			"question is %d characters long, the limit is %d", n, o.cfg.MaxQuestionLength)
	}
	return q, nil
}

// retrieve absorbs store failures into an empty context. The only error it
// returns is the caller's own cancellation.
func (o *RagOrchestrator) retrieve(ctx context.Context, log *zap.Logger, q string) (entities.RetrievalContext, error) {
	chunks, err := o.store.Query(ctx, q, o.cfg.TopK)
	if err != nil {
		if ctx.Err() != nil {
			return entities.RetrievalContext{}, ctx.Err()
		}
		o.recorder.RetrievalDegraded()
		log.Warn("retrieval degraded, continuing without context",
			zap.String("code", string(entities.ErrRetrievalDegraded)),
			zap.Error(err),
		)
		return entities.RetrievalContext{}, nil
	}
	if len(chunks) > o.cfg.TopK {
		chunks = chunks[:o.cfg.TopK]
	}
	log.Debug("retrieved context", zap.Int("chunks", len(chunks)))
	return entities.RetrievalContext{Chunks: chunks}, nil
}

func (o *RagOrchestrator) checkGuard(log *zap.Logger, q string, rc entities.RetrievalContext) (string, bool) {
	if o.guard == nil {
		return "", false
	}
	reply, rejected := o.guard.Check(q, rc)
	if rejected {
		log.Info("question rejected as off-topic", zap.Float64("best_score", rc.BestScore()))
	}
	return reply, rejected
}

func (o *RagOrchestrator) generationFailed(log *zap.Logger, mode string, err error) {
	if mode == ModeOnce {
		o.recorder.ObserveAnswer(mode, OutcomeError)
	}
	log.Error("generation failed",
		zap.String("code", string(entities.ErrGenerationFailed)),
		zap.Error(err),
	)
	log.Info("generation not retried", zap.Bool("retried", false))
}

func (o *RagOrchestrator) cancelled(log *zap.Logger, mode string) {
	o.recorder.ObserveAnswer(mode, OutcomeCancelled)
	log.Debug("request cancelled by client")
}

type nopRecorder struct{}

func (nopRecorder) ObserveAnswer(string, string) {}
func (nopRecorder) ObserveGeneration(string, time.Duration) {}
func (nopRecorder) RetrievalDegraded() {}
func (nopRecorder) TokenStreamed() {}
