package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/inkplay/internal/domain/model"
)

// MemoryStore keeps settings and a bounded ledger in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	settings map[string]model.Setting
	wins     []model.Win
	seen     map[string]struct{}
	closed   bool
	opts     options
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a store seeded with the default settings.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &MemoryStore{
		settings: make(map[string]model.Setting),
		seen:     make(map[string]struct{}),
		opts:     o,
	}
	now := o.now().UTC()
	for _, d := range model.DefaultSettings() {
		d.UpdatedAt = now
		s.settings[d.GameKey] = d
	}
	return s
}

func (s *MemoryStore) List(ctx context.Context) ([]model.Setting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]model.Setting, 0, len(s.settings))
	for _, v := range s.settings {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameKey < out[j].GameKey })
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (model.Setting, error) {
	if err := ctx.Err(); err != nil {
		return model.Setting{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.Setting{}, ErrClosed
	}
	v, ok := s.settings[key]
	if !ok {
		return model.Setting{}, ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, in model.Setting) (model.Setting, error) {
	if err := ctx.Err(); err != nil {
		return model.Setting{}, err
	}
	v, err := normalize(in)
	if err != nil {
		return model.Setting{}, err
	}
	v.UpdatedAt = s.opts.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Setting{}, ErrClosed
	}
	s.settings[v.GameKey] = v
	return v, nil
}

func (s *MemoryStore) Append(ctx context.Context, w model.Win) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, dup := s.seen[w.ID]; dup {
		return nil
	}
	s.seen[w.ID] = struct{}{}
	s.wins = append(s.wins, w)
	if over := len(s.wins) - s.opts.ledgerCapacity; over > 0 {
		for _, old := range s.wins[:over] {
			delete(s.seen, old.ID)
		}
		s.wins = append(s.wins[:0:0], s.wins[over:]...)
	}
	return nil
}

func (s *MemoryStore) Recent(ctx context.Context, n int) ([]model.Win, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if n > len(s.wins) {
		n = len(s.wins)
	}
	out := make([]model.Win, 0, n)
	for i := len(s.wins) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.wins[i])
	}
	return out, nil
}

// Close marks the store closed. Further calls return ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
