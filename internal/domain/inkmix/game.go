package inkmix

import (
	"math"
	"sync"
	"time"

	"github.com/okian/inkplay/internal/domain/game"
)

// Defaults of a session.
const (
	DefaultTimeLimit = 10 * time.Second
	tickInterval     = time.Second
)

// Phases of an ink mix session.
const (
	PhasePlaying = "playing"
	PhaseWon     = "won"
	PhaseLost    = "lost"
)

// Option applies a configuration option to the Game.
type Option func(*Game)

// WithTarget fixes the target instead of drawing one from the palette.
func WithTarget(t Target) Option {
	return func(g *Game) {
		g.target = t
		g.targetSet = true
	}
}

// WithRandom sets the source used to draw the target.
func WithRandom(r game.Random) Option {
	return func(g *Game) {
		if r != nil {
			g.rnd = r
		}
	}
}

// WithTimeLimit sets the countdown length, rounded up to whole seconds.
func WithTimeLimit(d time.Duration) Option {
	return func(g *Game) {
		if d > 0 {
			g.secondsLeft = int(math.Ceil(d.Seconds()))
		}
	}
}

// WithScheduler sets the scheduler that drives the countdown.
func WithScheduler(s game.Scheduler) Option {
	return func(g *Game) {
		if s != nil {
			g.sched = s
		}
	}
}

// WithOnWin sets the callback that receives the win.
func WithOnWin(fn game.WinFunc) Option {
	return func(g *Game) { g.onWin = fn }
}

// WithOnChange sets a callback run after every mix and every countdown tick.
func WithOnChange(fn func()) Option {
	return func(g *Game) { g.onChange = fn }
}

// Game is one Color-Mixing session. It is safe for concurrent use.
type Game struct {
	mu          sync.Mutex
	cfg         game.Config
	target      Target
	targetSet   bool
	mix         RGB
	secondsLeft int
	squeezes    int
	phase       string
	started     bool
	closed      bool
	timer       game.Timer
	latch       game.Latch

	rnd      game.Random
	sched    game.Scheduler
	onWin    game.WinFunc
	onChange func()
}

// New prepares a session. The countdown does not run until Start.
func New(cfg game.Config, opts ...Option) *Game {
	g := &Game{
		cfg:         cfg,
		mix:         Neutral,
		secondsLeft: int(DefaultTimeLimit / time.Second),
		phase:       PhasePlaying,
		sched:       game.RealScheduler(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if !g.targetSet {
		if g.rnd == nil {
			g.rnd = game.NewRandom(0)
		}
		g.target = Palette[g.rnd.Intn(len(Palette))]
	}
	return g
}

// Start runs the countdown. Calling it again has no effect.
func (g *Game) Start() {
	g.mu.Lock()
	if g.started || g.closed || g.phase != PhasePlaying {
		g.mu.Unlock()
		return
	}
	g.started = true
	g.timer = g.sched.Every(tickInterval, g.tick)
	ev, won := g.evaluateLocked()
	g.mu.Unlock()

	g.emit(ev, won)
}

func (g *Game) tick() {
	g.mu.Lock()
	if g.closed || g.phase != PhasePlaying {
		g.mu.Unlock()
		return
	}
	g.secondsLeft--
	if g.secondsLeft <= 0 {
		g.secondsLeft = 0
		g.phase = PhaseLost
		g.stopTimerLocked()
	}
	g.mu.Unlock()

	g.emit(game.WinEvent{}, false)
}

// Mix squeezes one tube into the mix. It returns false before Start and once
// the session is over. The countdown is never touched.
func (g *Game) Mix(t Tube) bool {
	g.mu.Lock()
	if !g.started || g.closed || g.phase != PhasePlaying {
		g.mu.Unlock()
		return false
	}
	g.mix = t.Apply(g.mix)
	g.squeezes++
	ev, won := g.evaluateLocked()
	g.mu.Unlock()

	g.emit(ev, won)
	return true
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
	if g.phase != PhasePlaying || Similarity(g.mix, g.target.RGB) < g.cfg.Target() {
		return game.WinEvent{}, false
	}
	if !g.latch.Fire() {
		return game.WinEvent{}, false
	}
	g.stopTimerLocked()
	g.phase = PhaseWon
	return g.cfg.Win(), true
}

func (g *Game) stopTimerLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

func (g *Game) emit(ev game.WinEvent, won bool) {
	if won && g.onWin != nil {
		g.onWin(ev)
	}
	if g.onChange != nil {
		g.onChange()
	}
}

// Close stops the countdown. Later ticks and mixes are ignored.
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.stopTimerLocked()
}

// Phase returns the current phase.
func (g *Game) Phase() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// View is a point-in-time copy of the session.
type View struct {
	Phase       string `json:"phase"`
	Mix         RGB    `json:"mix"`
	MixHex      string `json:"mix_hex"`
	Target      Target `json:"target"`
	TargetHex   string `json:"target_hex"`
	Similarity  int    `json:"similarity"`
	Threshold   int    `json:"threshold"`
	SecondsLeft int    `json:"seconds_left"`
	Squeezes    int    `json:"squeezes"`
}

// Snapshot returns the current session state.
func (g *Game) Snapshot() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return View{
		Phase:       g.phase,
		Mix:         g.mix,
		MixHex:      g.mix.Hex(),
		Target:      g.target,
		TargetHex:   g.target.RGB.Hex(),
		Similarity:  Similarity(g.mix, g.target.RGB),
		Threshold:   g.cfg.Target(),
		SecondsLeft: g.secondsLeft,
		Squeezes:    g.squeezes,
	}
}
