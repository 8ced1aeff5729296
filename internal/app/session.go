package service

import (
	"sync"
	"time"

	"github.com/okian/inkplay/internal/domain/game"
	"github.com/okian/inkplay/internal/domain/inkmix"
	"github.com/okian/inkplay/internal/domain/memory"
	"github.com/okian/inkplay/internal/domain/precision"
)

const subscriberBuffer = 16

// ClaimStatus tells the player what happened to their win.
type ClaimStatus string

const (
	ClaimNone           ClaimStatus = ""
	ClaimAwarded        ClaimStatus = "awarded"
	ClaimAlreadyClaimed ClaimStatus = "already_claimed"
)

// Award is the discount handed to a first-time winner.
type Award struct {
	Code         string `json:"code"`
	DiscountRate int    `json:"discount_rate"`
}

// SessionView is the snapshot of a session sent to clients. Exactly one of
// the game views is set.
type SessionView struct {
	ID        string          `json:"id"`
	Game      string          `json:"game"`
	PlayerID  string          `json:"player_id"`
	Phase     string          `json:"phase"`
	Finished  bool            `json:"finished"`
	Closed    bool            `json:"closed"`
	Claim     ClaimStatus     `json:"claim,omitempty"`
	Award     *Award          `json:"award,omitempty"`
	Memory    *memory.View    `json:"memory,omitempty"`
	Precision *precision.View `json:"precision,omitempty"`
	InkMix    *inkmix.View    `json:"ink_mix,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type engine interface {
	Phase() string
	Close()
}

type session struct {
	id        string
	playerID  string
	kind      game.Kind
	createdAt time.Time

	mem  *memory.Game
	prec *precision.Game
	ink  *inkmix.Game

	mu       sync.Mutex
	lastSeen time.Time
	claim    ClaimStatus
	award    *Award
	finished bool
	closed   bool
	subs     map[int]chan SessionView
	nextSub  int
}

func (ss *session) engine() engine {
	switch {
	case ss.mem != nil:
		return ss.mem
	case ss.prec != nil:
		return ss.prec
	default:
		return ss.ink
	}
}

// terminal reports whether the phase ends the session.
func terminal(phase string) bool {
	switch phase {
	case memory.PhaseWon, inkmix.PhaseLost, precision.PhaseResults:
		return true
	}
	return false
}

// outcome names a terminal phase for metrics.
func outcome(phase string) string {
	if phase == precision.PhaseResults {
		return "missed"
	}
	return phase
}

func (ss *session) touch(now time.Time) {
	ss.mu.Lock()
	ss.lastSeen = now
	ss.mu.Unlock()
}

func (ss *session) idleSince() time.Time {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.lastSeen
}

// view builds the snapshot. Engine locks are taken before ss.mu, never inside it.
func (ss *session) view() SessionView {
	v := SessionView{
		ID:        ss.id,
		Game:      ss.kind.Key(),
		PlayerID:  ss.playerID,
		CreatedAt: ss.createdAt,
	}
	switch {
	case ss.mem != nil:
		mv := ss.mem.Snapshot()
		v.Memory = &mv
		v.Phase = mv.Phase
	case ss.prec != nil:
		pv := ss.prec.Snapshot()
		v.Precision = &pv
		v.Phase = pv.Phase
	case ss.ink != nil:
		iv := ss.ink.Snapshot()
		v.InkMix = &iv
		v.Phase = iv.Phase
	}
	v.Finished = terminal(v.Phase)

	ss.mu.Lock()
	defer ss.mu.Unlock()
	v.Claim = ss.claim
	if ss.award != nil {
		a := *ss.award
		v.Award = &a
	}
	v.Closed = ss.closed
	v.UpdatedAt = ss.lastSeen
	return v
}

// subscribe registers a listener primed with the current view.
func (ss *session) subscribe() (<-chan SessionView, func()) {
	current := ss.view()

	ss.mu.Lock()
	defer ss.mu.Unlock()
	ch := make(chan SessionView, subscriberBuffer)
	if ss.closed {
		ch <- current
		close(ch)
		return ch, func() {}
	}
	if ss.subs == nil {
		ss.subs = make(map[int]chan SessionView)
	}
	id := ss.nextSub
	ss.nextSub++
	ss.subs[id] = ch
	ch <- current

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			ss.mu.Lock()
			defer ss.mu.Unlock()
			if c, ok := ss.subs[id]; ok {
				delete(ss.subs, id)
				close(c)
			}
		})
	}
}

// publish pushes v to every listener. A slow listener loses its oldest update.
func (ss *session) publish(v SessionView) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	for _, ch := range ss.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// markFinished returns true the first time it is called.
func (ss *session) markFinished() bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.finished {
		return false
	}
	ss.finished = true
	return true
}

// close tears the engine down and releases every listener with a final view.
// It returns false when the session was already closed.
func (ss *session) close() bool {
	ss.mu.Lock()
	if ss.closed {
		ss.mu.Unlock()
		return false
	}
	ss.closed = true
	ss.mu.Unlock()

	ss.engine().Close()
	final := ss.view()

	ss.mu.Lock()
	defer ss.mu.Unlock()
	for id, ch := range ss.subs {
		select {
		case ch <- final:
		default:
		}
		close(ch)
		delete(ss.subs, id)
	}
	return true
}
