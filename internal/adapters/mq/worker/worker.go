// Package worker persists awarded wins off the request path.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/inkplay/internal/domain/model"
	"github.com/okian/inkplay/pkg/logger"
	"github.com/okian/inkplay/pkg/metrics"
)

const (
	defaultRetries      = 3
	defaultBackoff      = 50 * time.Millisecond
	poolShutdownTimeout = 30 * time.Second
)

// Writer stores a win.
type Writer interface {
	Append(ctx context.Context, w model.Win) error
}

// Queue defines how workers receive wins.
type Queue interface {
	Dequeue() <-chan model.Win
}

// Worker drains the queue into the writer.
type Worker interface {
	// Run processes wins until the queue closes or ctx is cancelled.
	Run(ctx context.Context)

	// Shutdown stops the worker without waiting for the queue to drain.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	writer  Writer
	name    string
	retries int
	backoff time.Duration

	processed atomic.Int64
	failed    atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, writer Writer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		writer:   writer,
		name:     "worker",
		retries:  defaultRetries,
		backoff:  defaultBackoff,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	wins := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case win, ok := <-wins:
			if !ok {
				return
			}
			if err := w.process(ctx, win); err != nil {
				w.failed.Add(1)
				w.logger.Error(ctx, "win not persisted",
					logger.String("win_id", win.ID),
					logger.String("player_id", win.PlayerID),
					logger.String("game", win.GameKey),
					logger.Error(err),
				)
				continue
			}
			w.processed.Add(1)
		}
	}
}

// Shutdown stops the worker and waits for it to return.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Processed returns the number of wins written.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Failed returns the number of wins given up on.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

func (w *InMemoryWorker) process(ctx context.Context, win model.Win) error { //nolint:gocritic // value semantics for channel receive
	delay := w.backoff
	var err error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			metrics.RecordLedgerRetry()
			select {
			case <-time.After(delay):
				delay *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		start := time.Now()
		if err = w.writer.Append(ctx, win); err == nil {
			metrics.RecordLedgerWrite(float64(time.Since(start).Microseconds()) / 1000)
			return nil
		}
		w.logger.Warn(ctx, "win write failed",
			logger.String("win_id", win.ID),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}
	metrics.RecordLedgerError()
	metrics.RecordErrorByComponent("worker", "ledger_write")
	return fmt.Errorf("persist win %s: %w", win.ID, err)
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers.
func NewPool(workerCount int, q Queue, writer Writer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, writer, wopts...)
	}
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Processed returns the number of wins written by every worker.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Failed returns the number of wins the pool gave up on.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Shutdown closes the queue and lets the workers drain it. Workers still
// busy when ctx (capped at 30s) expires are stopped and ErrDrainTimeout is
// returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	stuck := 0
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			if err := w.Shutdown(shutdownCtx); err != nil {
				stuck++
			}
		}
	}
	if stuck > 0 {
		return fmt.Errorf("%w: %d of %d workers: %w", ErrDrainTimeout, stuck, len(p.workers), shutdownCtx.Err())
	}
	return nil
}
