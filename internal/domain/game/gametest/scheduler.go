// Package gametest provides deterministic helpers for engine tests.
package gametest

import (
	"sort"
	"sync"
	"time"

	"github.com/okian/inkplay/internal/domain/game"
)

// ManualScheduler is a game.Scheduler whose clock only moves on Advance.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTimer
}

// NewManualScheduler returns a scheduler at time zero.
func NewManualScheduler() *ManualScheduler { return &ManualScheduler{} }

type manualTimer struct {
	s       *ManualScheduler
	seq     int
	due     time.Duration
	every   time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// AfterFunc implements game.Scheduler.
func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) game.Timer {
	return s.add(d, 0, f)
}

// Every implements game.Scheduler.
func (s *ManualScheduler) Every(d time.Duration, f func()) game.Timer {
	return s.add(d, d, f)
}

func (s *ManualScheduler) add(d, every time.Duration, f func()) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTimer{s: s, seq: s.seq, due: s.now + d, every: every, f: f}
	s.pending = append(s.pending, t)
	return t
}

// Advance moves the clock forward by d and runs every callback that falls
// due, in time order. Callbacks run without the scheduler lock held.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		t := s.next(target)
		if t == nil {
			break
		}
		t.f()
	}

	s.mu.Lock()
	s.now = target
	s.mu.Unlock()
}

// next pops the earliest live timer due at or before target.
func (s *ManualScheduler) next(target time.Duration) *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.pending[:0]
	for _, t := range s.pending {
		if !t.stopped {
			live = append(live, t)
		}
	}
	s.pending = live
	if len(s.pending) == 0 {
		return nil
	}
	sort.Slice(s.pending, func(i, j int) bool {
		if s.pending[i].due == s.pending[j].due {
			return s.pending[i].seq < s.pending[j].seq
		}
		return s.pending[i].due < s.pending[j].due
	})
	t := s.pending[0]
	if t.due > target {
		return nil
	}
	s.now = t.due
	if t.every > 0 {
		t.due += t.every
	} else {
		t.stopped = true
	}
	return t
}

// Pending returns the number of live timers.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}

// SeqRandom is a game.Random that returns scripted Intn values and never
// shuffles. Once the script is exhausted Intn returns 0.
type SeqRandom struct {
	mu     sync.Mutex
	values []int
}

// NewSeqRandom returns a SeqRandom that yields values in order.
func NewSeqRandom(values ...int) *SeqRandom { return &SeqRandom{values: values} }

// Intn implements game.Random.
func (r *SeqRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return 0
	}
	v := r.values[0]
	r.values = r.values[1:]
	if n <= 0 {
		return 0
	}
	return v % n
}

// Shuffle implements game.Random. It leaves the order unchanged.
func (r *SeqRandom) Shuffle(int, func(i, j int)) {}
