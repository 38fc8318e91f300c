// Package pool bounds background work on an ants goroutine pool.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// ErrPoolClosed is returned when submitting to a released pool.
var ErrPoolClosed = errors.New("pool: closed")

// Stats is a snapshot of pool counters.
type Stats struct {
	Submitted int64
	Completed int64
	Panics    int64
}

// Pool runs tasks on a fixed number of reusable goroutines.
type Pool struct {
	name   string
	pool   *ants.Pool
	logger *zap.Logger

	submitted atomic.Int64
	completed atomic.Int64
	panics    atomic.Int64
	closed    atomic.Bool
}

// New creates a pool of the given capacity. Submit blocks while it is full.
func New(name string, capacity int, logger *zap.Logger) (*Pool, error) {
	if capacity <= 0 {
		capacity = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{name: name, logger: logger.With(zap.String("pool", name))}

	ap, err := ants.NewPool(capacity,
		ants.WithExpiryDuration(30*time.Second),
		ants.WithPanicHandler(func(v interface{}) {
			p.panics.Add(1)
			p.logger.Error("worker panic recovered", zap.Any("panic", v))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pool %s: %w", name, err)
	}
	p.pool = ap
	return p, nil
}

// Submit queues task.
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.submitted.Add(1)
	return p.pool.Submit(func() {
		defer p.completed.Add(1)
		task()
	})
}

// Run executes every task on the pool and waits for all of them. It returns
// the first error; the context passed to tasks is cancelled once one fails.
func (p *Pool) Run(ctx context.Context, tasks ...func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for _, task := range tasks {
		task := task
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			if err := task(ctx); err != nil {
				fail(err)
			}
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr == nil && ctx.Err() != nil {
		// parent cancellation
		return context.Cause(ctx)
	}
	return firstErr
}

// Stats returns the current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Panics:    p.panics.Load(),
	}
}

// Cap returns the pool capacity.
func (p *Pool) Cap() int { return p.pool.Cap() }

// Release waits up to timeout for running tasks and frees the workers.
func (p *Pool) Release(timeout time.Duration) {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		p.logger.Warn("pool release timed out", zap.Error(err))
	}
}
