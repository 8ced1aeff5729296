package claims_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/inkplay/internal/adapters/claims"
)

func TestRedisStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	prefix := "inkplay:test:" + uuid.NewString() + ":"
	s, err := claims.Dial(ctx, "localhost:6379", "", 0, claims.WithPrefix(prefix), claims.WithTTL(time.Minute))
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer s.Close()

	ok, err := s.Claim(ctx, "p1", "memory_cards")
	if err != nil || !ok {
		t.Fatalf("expected first claim to succeed, got %v %v", ok, err)
	}
	ok, err = s.Claim(ctx, "p1", "memory_cards")
	if err != nil || ok {
		t.Fatalf("expected second claim to be refused, got %v %v", ok, err)
	}

	n, err := s.Size(ctx)
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 claim, got %d", n)
	}

	if err := s.Release(ctx, "p1", "memory_cards"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, _ = s.Claim(ctx, "p1", "memory_cards")
	if !ok {
		t.Error("expected claim after release to succeed")
	}
	_ = s.Release(ctx, "p1", "memory_cards")
}

func TestNewRedisStore_NilClient(t *testing.T) {
	if _, err := claims.NewRedisStore(nil); err != claims.ErrNoClient {
		t.Errorf("expected ErrNoClient, got %v", err)
	}
}
