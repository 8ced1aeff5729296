package precision

import (
	"sync"

	"github.com/okian/inkplay/internal/domain/game"
)

// Phases of a precision session.
const (
	PhaseShapes  = "shapes"
	PhaseResults = "results"
	PhaseWon     = "won"
)

// Option applies a configuration option to the Game.
type Option func(*Game)

// WithOnWin sets the callback that receives the win.
func WithOnWin(fn game.WinFunc) Option {
	return func(g *Game) { g.onWin = fn }
}

// WithOnChange sets a callback run after every scored stroke.
func WithOnChange(fn func()) Option {
	return func(g *Game) { g.onChange = fn }
}

// Game is one Stroke-Precision session. It is safe for concurrent use.
type Game struct {
	mu      sync.Mutex
	cfg     game.Config
	shapes  []ShapeType
	rounds  []Score
	stroke  []Point
	drawing bool
	phase   string
	closed  bool
	latch   game.Latch

	onWin    game.WinFunc
	onChange func()
}

// New starts a session at the first shape.
func New(cfg game.Config, opts ...Option) *Game {
	g := &Game{cfg: cfg, shapes: Shapes(), phase: PhaseShapes}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// BeginStroke starts a stroke at p. It returns false once all shapes have
// been traced.
func (g *Game) BeginStroke(p Point) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.phase != PhaseShapes {
		return false
	}
	g.stroke = append(g.stroke[:0], p)
	g.drawing = true
	return true
}

// AddPoint records a sample of the current stroke. Every sample is kept.
func (g *Game) AddPoint(p Point) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.drawing {
		g.stroke = append(g.stroke, p)
	}
}

// EndStroke scores the current stroke against the current shape and moves on.
func (g *Game) EndStroke() (Score, bool) {
	g.mu.Lock()
	if !g.drawing {
		g.mu.Unlock()
		return Score{}, false
	}
	g.drawing = false
	points := g.stroke
	g.stroke = nil
	return g.score(points)
}

// SubmitStroke scores a complete stroke captured elsewhere.
func (g *Game) SubmitStroke(points []Point) (Score, bool) {
	g.mu.Lock()
	if g.closed || g.phase != PhaseShapes {
		g.mu.Unlock()
		return Score{}, false
	}
	g.drawing = false
	g.stroke = nil
	return g.score(points)
}

// score is entered with g.mu held and releases it.
func (g *Game) score(points []Point) (Score, bool) {
	s := Evaluate(points, g.shapes[len(g.rounds)])
	g.rounds = append(g.rounds, s)
	if len(g.rounds) == len(g.shapes) {
		g.phase = PhaseResults
	}
	ev, won := g.evaluateLocked()
	g.mu.Unlock()

	if won && g.onWin != nil {
		g.onWin(ev)
	}
	if g.onChange != nil {
		g.onChange()
	}
	return s, true
}

// EvaluateWin checks the win condition and reports whether this call fired
// the win.
func (g *Game) EvaluateWin() bool {
	g.mu.Lock()
	ev, won := g.evaluateLocked()
	g.mu.Unlock()

	if won && g.onWin != nil {
		g.onWin(ev)
	}
	return won
}

func (g *Game) evaluateLocked() (game.WinEvent, bool) {
	if g.phase != PhaseResults {
		return game.WinEvent{}, false
	}
	if average(g.rounds, func(s Score) int { return s.Accuracy }) < float64(g.cfg.Target()) {
		return game.WinEvent{}, false
	}
	if !g.latch.Fire() {
		return game.WinEvent{}, false
	}
	g.phase = PhaseWon
	return g.cfg.Win(), true
}

// Close makes the session ignore further strokes.
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.drawing = false
}

// Phase returns the current phase.
func (g *Game) Phase() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// View is a point-in-time copy of the session.
type View struct {
	Phase       string    `json:"phase"`
	Shape       ShapeType `json:"shape,omitempty"`
	Round       int       `json:"round"`
	Rounds      []Score   `json:"rounds"`
	AvgAccuracy float64   `json:"avg_accuracy"`
	AvgTremor   float64   `json:"avg_tremor"`
	Target      int       `json:"target"`
}

// Snapshot returns the current session state.
func (g *Game) Snapshot() View {
	g.mu.Lock()
	defer g.mu.Unlock()

	v := View{
		Phase:       g.phase,
		Round:       len(g.rounds),
		Rounds:      append([]Score{}, g.rounds...),
		AvgAccuracy: average(g.rounds, func(s Score) int { return s.Accuracy }),
		AvgTremor:   average(g.rounds, func(s Score) int { return s.Tremor }),
		Target:      g.cfg.Target(),
	}
	if len(g.rounds) < len(g.shapes) {
		v.Shape = g.shapes[len(g.rounds)]
	}
	return v
}

func average(rounds []Score, field func(Score) int) float64 {
	if len(rounds) == 0 {
		return 0
	}
	var sum int
	for _, r := range rounds {
		sum += field(r)
	}
	return float64(sum) / float64(len(rounds))
}
