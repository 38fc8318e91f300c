package usecases

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/domain/ports"
)

// DirectorySync keeps the knowledge store in step with a watched directory:
// created or modified files are (re)ingested under their base name and
// deleted files are forgotten. Bursts of events for one path are collapsed
// into a single action after the debounce interval.
type DirectorySync struct {
	ingest   *IngestUseCase
	runner   ports.TaskRunner
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingChange
	wg      sync.WaitGroup
}

type pendingChange struct {
	op    ports.FileOperation
	timer *time.Timer
}

// NewDirectorySync creates a syncer. runner may be nil, in which case work
// runs on the timer goroutine (or inline with a zero debounce).
func NewDirectorySync(ingest *IngestUseCase, runner ports.TaskRunner, debounce time.Duration, logger *zap.Logger) *DirectorySync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectorySync{
		ingest:   ingest,
		runner:   runner,
		debounce: debounce,
		logger:   logger.With(zap.String("component", "dirsync")),
		pending:  make(map[string]*pendingChange),
	}
}

// Run consumes events until the channel closes or ctx is done, then waits
// for scheduled work to finish.
func (d *DirectorySync) Run(ctx context.Context, events <-chan ports.FileEvent) error {
	defer d.wg.Wait()
	defer d.cancelPending()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.schedule(ctx, ev)
		}
	}
}

func (d *DirectorySync) schedule(ctx context.Context, ev ports.FileEvent) {
	if d.debounce <= 0 {
		d.dispatch(ctx, ev.Path, ev.Operation)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pending[ev.Path]; ok && p.timer.Stop() {
		p.op = merge(p.op, ev.Operation)
		p.timer.Reset(d.debounce)
		return
	}
	p := &pendingChange{op: ev.Operation}
	d.wg.Add(1)
	p.timer = time.AfterFunc(d.debounce, func() {
		defer d.wg.Done()
		d.mu.Lock()
		op := p.op
		if d.pending[ev.Path] == p {
			delete(d.pending, ev.Path)
		}
		d.mu.Unlock()
		d.dispatch(ctx, ev.Path, op)
	})
	d.pending[ev.Path] = p
}

// merge keeps "created" through later writes so a new file is reported as
// new; any other sequence takes the latest operation.
func merge(prev, next ports.FileOperation) ports.FileOperation {
	if prev == ports.FileCreated && next == ports.FileModified {
		return prev
	}
	return next
}

func (d *DirectorySync) cancelPending() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, p := range d.pending {
		if p.timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, path)
	}
}

func (d *DirectorySync) dispatch(ctx context.Context, path string, op ports.FileOperation) {
	task := func() { d.apply(ctx, path, op) }
	if d.runner == nil {
		task()
		return
	}
	d.wg.Add(1)
	if err := d.runner.Submit(func() {
		defer d.wg.Done()
		task()
	}); err != nil {
		d.wg.Done()
		d.logger.Warn("could not schedule file sync", zap.String("path", path), zap.Error(err))
	}
}

func (d *DirectorySync) apply(ctx context.Context, path string, op ports.FileOperation) {
	if ctx.Err() != nil {
		return
	}
	source := filepath.Base(path)
	switch op {
	case ports.FileCreated, ports.FileModified:
		n, err := d.ingest.IngestFile(ctx, path, source)
		if err != nil {
			d.logger.Warn("file not ingested", zap.String("path", path), zap.Error(err))
			return
		}
		d.logger.Info("file synced", zap.String("source", source), zap.Int("chunks", n))
	case ports.FileDeleted:
		if err := d.ingest.Forget(ctx, source); err != nil {
			d.logger.Warn("file not forgotten", zap.String("path", path), zap.Error(err))
			return
		}
		d.logger.Info("file removed from knowledge base", zap.String("source", source))
	}
}
