// Package queue buffers awarded wins between the game sessions that produce
// them and the workers that persist them.
package queue

import (
	"context"
	"sync"

	"github.com/okian/inkplay/internal/domain/model"
	"github.com/okian/inkplay/pkg/metrics"
)

const defaultCapacity = 1024

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a win to the queue.
	// Returns false if the queue is full or closed and the win was not enqueued.
	Enqueue(ctx context.Context, w model.Win) bool

	// Dequeue returns the channel consumers range over. It is closed by Close.
	Dequeue() <-chan model.Win

	// Len returns the current number of queued wins.
	Len() int

	// Close stops accepting wins. Queued wins can still be drained.
	Close() error
}

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of queued wins.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	wins     chan model.Win
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a bounded in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.wins = make(chan model.Win, q.capacity)
	metrics.UpdateLedgerQueue(0, q.capacity)
	return q
}

// Enqueue adds a win without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, w model.Win) bool { //nolint:gocritic // value semantics for channel send
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	}

	select {
	case q.wins <- w:
		metrics.UpdateLedgerQueue(len(q.wins), q.capacity)
		return true
	default:
		metrics.RecordLedgerDropped()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns the channel of queued wins.
func (q *InMemoryQueue) Dequeue() <-chan model.Win {
	return q.wins
}

// Len returns the current number of queued wins.
func (q *InMemoryQueue) Len() int {
	n := len(q.wins)
	metrics.UpdateLedgerQueue(n, q.capacity)
	return n
}

// Capacity returns the configured bound.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// Close gracefully shuts down the queue. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.wins)
	q.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
