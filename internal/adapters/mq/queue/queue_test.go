package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/inkplay/internal/domain/model"
)

func win(id string) model.Win {
	return model.Win{ID: id, PlayerID: "player-" + id, GameKey: "memory_cards", DiscountRate: 20, PromoCode: "TATTOO2024"}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if !q.Enqueue(ctx, win("w1")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue()
	if got.ID != "w1" {
		t.Errorf("expected w1, got %v", got.ID)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, win("w1")) || !q.Enqueue(ctx, win("w2")) {
		t.Fatal("expected enqueue to succeed below capacity")
	}
	if q.Enqueue(ctx, win("w3")) {
		t.Error("expected enqueue to fail when full")
	}
	if q.Capacity() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Capacity())
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()
	q.Enqueue(ctx, win("w1"))

	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if q.Enqueue(ctx, win("w2")) {
		t.Error("expected enqueue to fail after close")
	}

	var drained []string
	for w := range q.Dequeue() {
		drained = append(drained, w.ID)
	}
	if len(drained) != 1 || drained[0] != "w1" {
		t.Errorf("expected to drain w1, got %v", drained)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, win("w1")) {
		t.Error("expected enqueue to fail with a cancelled context")
	}
}

func TestInMemoryQueue_Concurrent(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				q.Enqueue(ctx, win(fmt.Sprintf("%d-%d", g, i)))
			}
		}(g)
	}
	wg.Wait()

	if l := q.Len(); l != 500 {
		t.Errorf("expected 500 queued wins, got %d", l)
	}
}
