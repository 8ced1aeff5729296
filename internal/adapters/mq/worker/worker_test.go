package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/inkplay/internal/adapters/mq/queue"
	worker "github.com/okian/inkplay/internal/adapters/mq/worker"
	model "github.com/okian/inkplay/internal/domain/model"
	logging "github.com/okian/inkplay/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockWriter struct {
	mu       sync.Mutex
	wins     []model.Win
	failures map[string]int
	calls    map[string]int
}

func newMockWriter() *mockWriter {
	return &mockWriter{failures: map[string]int{}, calls: map[string]int{}}
}

func (m *mockWriter) Append(_ context.Context, w model.Win) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[w.ID]++
	if m.failures[w.ID] > 0 {
		m.failures[w.ID]--
		return errors.New("database unavailable")
	}
	m.wins = append(m.wins, w)
	return nil
}

func (m *mockWriter) stored() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.wins)
}

func (m *mockWriter) callsFor(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[id]
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestWorker(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a worker over a queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		writer := newMockWriter()
		w := worker.NewInMemoryWorker(q, writer, worker.WithBackoff(time.Millisecond), worker.WithRetries(2))
		go w.Run(ctx)

		convey.Convey("When wins are queued", func() {
			for i := 0; i < 5; i++ {
				q.Enqueue(ctx, model.Win{ID: fmt.Sprintf("w%d", i)})
			}

			convey.Convey("Then they are all written", func() {
				convey.So(waitFor(func() bool { return writer.stored() == 5 }), convey.ShouldBeTrue)
				convey.So(waitFor(func() bool { return w.Processed() == 5 }), convey.ShouldBeTrue)
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the writer fails transiently", func() {
			writer.failures["flaky"] = 2
			q.Enqueue(ctx, model.Win{ID: "flaky"})

			convey.Convey("Then the write is retried until it succeeds", func() {
				convey.So(waitFor(func() bool { return writer.stored() == 1 }), convey.ShouldBeTrue)
				convey.So(writer.callsFor("flaky"), convey.ShouldEqual, 3)
				convey.So(w.Failed(), convey.ShouldEqual, 0)
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the writer keeps failing", func() {
			writer.failures["doomed"] = 100
			q.Enqueue(ctx, model.Win{ID: "doomed"})

			convey.Convey("Then the worker gives up after the retries", func() {
				convey.So(waitFor(func() bool { return w.Failed() == 1 }), convey.ShouldBeTrue)
				convey.So(writer.callsFor("doomed"), convey.ShouldEqual, 3)
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the queue is closed", func() {
			_ = q.Close()

			convey.Convey("Then the worker returns on its own", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
				}
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a pool of workers", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(256))
		writer := newMockWriter()
		p := worker.NewPool(4, q, writer)
		p.Start(ctx)

		convey.Convey("When many wins are queued and the pool shuts down", func() {
			for i := 0; i < 200; i++ {
				q.Enqueue(ctx, model.Win{ID: fmt.Sprintf("w%d", i)})
			}
			err := p.Shutdown(ctx)

			convey.Convey("Then every queued win is drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(writer.stored(), convey.ShouldEqual, 200)
				convey.So(p.Processed(), convey.ShouldEqual, 200)
				convey.So(p.Size(), convey.ShouldEqual, 4)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When created with no workers", func() {
			small := worker.NewPool(0, queue.NewInMemoryQueue(), writer)

			convey.Convey("Then it still runs one", func() {
				convey.So(small.Size(), convey.ShouldEqual, 1)
			})
		})
	})
}

type blockingWriter struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingWriter) Append(_ context.Context, _ model.Win) error {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return nil
}

func TestPoolShutdownTimeout(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a pool whose writer never returns", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue()
		writer := &blockingWriter{entered: make(chan struct{}), release: make(chan struct{})}
		p := worker.NewPool(1, q, writer)
		p.Start(ctx)
		defer close(writer.release)

		q.Enqueue(ctx, model.Win{ID: "stuck"})
		select {
		case <-writer.entered:
		case <-time.After(2 * time.Second):
			t.Fatal("writer was never called")
		}

		convey.Convey("When the pool is shut down with a short deadline", func() {
			sctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()
			err := p.Shutdown(sctx)

			convey.Convey("Then the drain timeout is reported", func() {
				convey.So(errors.Is(err, worker.ErrDrainTimeout), convey.ShouldBeTrue)
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
				convey.So(p.Processed(), convey.ShouldEqual, 0)
			})
		})
	})
}
