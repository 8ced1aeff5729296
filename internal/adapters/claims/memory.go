package claims

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

type entry struct {
	key       string
	claimedAt time.Time
}

// MemoryStore keeps claims in process memory.
// In bounded mode the oldest claim is evicted first.
type MemoryStore struct {
	mu    sync.Mutex
	seen  map[string]*list.Element
	order *list.List // front is newest
	opts  options
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		seen:  make(map[string]*list.Element),
		order: list.New(),
		opts:  o,
	}
}

func (s *MemoryStore) Claim(ctx context.Context, player, game string) (bool, error) {
	if strings.TrimSpace(player) == "" {
		return false, ErrEmptyPlayer
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := Key(player, game)
	now := s.opts.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.seen[key]; ok {
		if !s.expired(el.Value.(*entry), now) {
			return false, nil
		}
		s.remove(el)
	}

	if s.opts.maxSize > 0 {
		for len(s.seen) >= s.opts.maxSize {
			s.remove(s.order.Back())
		}
	}
	s.seen[key] = s.order.PushFront(&entry{key: key, claimedAt: now})
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, player, game string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.seen[Key(player, game)]; ok {
		s.remove(el)
	}
	return nil
}

func (s *MemoryStore) Size(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.seen)), nil
}

func (s *MemoryStore) expired(e *entry, now time.Time) bool {
	return s.opts.ttl > 0 && now.Sub(e.claimedAt) >= s.opts.ttl
}

// remove must be called with s.mu held.
func (s *MemoryStore) remove(el *list.Element) {
	if el == nil {
		return
	}
	delete(s.seen, el.Value.(*entry).key)
	s.order.Remove(el)
}
