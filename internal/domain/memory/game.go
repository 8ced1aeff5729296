package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/okian/inkplay/internal/domain/game"
)

// State is the face of a single card.
type State int

const (
	Closed State = iota
	Open
	Matched
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Matched:
		return "matched"
	default:
		return "closed"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "closed":
		*s = Closed
	case "open":
		*s = Open
	case "matched":
		*s = Matched
	default:
		return fmt.Errorf("%w: %q", ErrUnknownState, b)
	}
	return nil
}

// Phases of a memory session.
const (
	PhasePlaying = "playing"
	PhaseWon     = "won"
)

// Game is one Memory-Match session. It is safe for concurrent use.
type Game struct {
	mu      sync.Mutex
	cfg     game.Config
	deck    []Card
	states  []State
	open    []int
	locked  bool
	closed  bool
	won     bool
	moves   int
	revertN uint64
	revert  game.Timer
	latch   game.Latch

	revealDelay time.Duration
	sched       game.Scheduler
	onWin       game.WinFunc
	onChange    func()
}

// New starts a session over deck.
func New(cfg game.Config, deck []Card, opts ...Option) *Game {
	g := &Game{
		cfg:         cfg,
		deck:        append([]Card(nil), deck...),
		states:      make([]State, len(deck)),
		revealDelay: DefaultRevealDelay,
		sched:       game.RealScheduler(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Reveal turns card index face up. It returns false when the move is not
// allowed: board locked, card not closed, two cards already open, index out
// of range or session closed.
func (g *Game) Reveal(index int) bool {
	g.mu.Lock()
	if g.closed || g.locked || index < 0 || index >= len(g.deck) ||
		g.states[index] != Closed || len(g.open) >= 2 {
		g.mu.Unlock()
		return false
	}

	g.states[index] = Open
	g.open = append(g.open, index)

	if len(g.open) == 2 {
		g.moves++
		g.locked = true
		a, b := g.open[0], g.open[1]
		if g.deck[a].PairID == g.deck[b].PairID {
			g.states[a], g.states[b] = Matched, Matched
			g.open = g.open[:0]
			g.locked = false
		} else {
			g.scheduleRevert()
		}
	}

	ev, won := g.evaluateLocked()
	g.mu.Unlock()

	g.emit(ev, won)
	return true
}

// scheduleRevert must be called with g.mu held.
func (g *Game) scheduleRevert() {
	g.revertN++
	n := g.revertN
	g.revert = g.sched.AfterFunc(g.revealDelay, func() { g.flipBack(n) })
}

func (g *Game) flipBack(n uint64) {
	g.mu.Lock()
	if g.closed || n != g.revertN || !g.locked {
		g.mu.Unlock()
		return
	}
	for _, i := range g.open {
		if g.states[i] == Open {
			g.states[i] = Closed
		}
	}
	g.open = g.open[:0]
	g.locked = false
	g.revert = nil
	ev, won := g.evaluateLocked()
	g.mu.Unlock()

	g.emit(ev, won)
}

// EvaluateWin checks the win condition and reports whether this call fired
// the win. Repeated calls after a win return false.
func (g *Game) EvaluateWin() bool {
	g.mu.Lock()
	ev, won := g.evaluateLocked()
	g.mu.Unlock()

	if won && g.onWin != nil {
		g.onWin(ev)
	}
	return won
}

// evaluateLocked must be called with g.mu held.
func (g *Game) evaluateLocked() (game.WinEvent, bool) {
	if len(g.states) == 0 {
		return game.WinEvent{}, false
	}
	for _, s := range g.states {
		if s != Matched {
			return game.WinEvent{}, false
		}
	}
	if !g.latch.Fire() {
		return game.WinEvent{}, false
	}
	g.won = true
	return g.cfg.Win(), true
}

func (g *Game) emit(ev game.WinEvent, won bool) {
	if won && g.onWin != nil {
		g.onWin(ev)
	}
	if g.onChange != nil {
		g.onChange()
	}
}

// Close cancels a pending revert. The session ignores input afterwards.
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	if g.revert != nil {
		g.revert.Stop()
		g.revert = nil
	}
}

// Phase returns PhasePlaying or PhaseWon.
func (g *Game) Phase() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.won {
		return PhaseWon
	}
	return PhasePlaying
}

// Won reports whether the session has been won.
func (g *Game) Won() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.won
}

// CardView is a card as the player sees it. Image is only set once the
// card is face up.
type CardView struct {
	Index int    `json:"index"`
	State State  `json:"state"`
	Image string `json:"image,omitempty"`
}

// View is a point-in-time copy of the board.
type View struct {
	Phase   string     `json:"phase"`
	Cards   []CardView `json:"cards"`
	Open    int        `json:"open"`
	Matched int        `json:"matched"`
	Moves   int        `json:"moves"`
	Locked  bool       `json:"locked"`
}

// Snapshot returns the current board.
func (g *Game) Snapshot() View {
	g.mu.Lock()
	defer g.mu.Unlock()

	v := View{
		Phase:  PhasePlaying,
		Cards:  make([]CardView, len(g.deck)),
		Open:   len(g.open),
		Moves:  g.moves,
		Locked: g.locked,
	}
	if g.won {
		v.Phase = PhaseWon
	}
	for i, c := range g.deck {
		cv := CardView{Index: i, State: g.states[i]}
		if g.states[i] != Closed {
			cv.Image = c.Image
		}
		if g.states[i] == Matched {
			v.Matched++
		}
		v.Cards[i] = cv
	}
	return v
}
