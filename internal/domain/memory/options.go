package memory

import (
	"time"

	"github.com/okian/inkplay/internal/domain/game"
)

// DefaultRevealDelay is how long a mismatched pair stays face up.
const DefaultRevealDelay = 600 * time.Millisecond

// Option applies a configuration option to the Game.
type Option func(*Game)

// WithRevealDelay sets how long a mismatched pair stays open.
func WithRevealDelay(d time.Duration) Option {
	return func(g *Game) {
		if d > 0 {
			g.revealDelay = d
		}
	}
}

// WithScheduler sets the scheduler used for the mismatch revert.
func WithScheduler(s game.Scheduler) Option {
	return func(g *Game) {
		if s != nil {
			g.sched = s
		}
	}
}

// WithOnWin sets the callback that receives the win.
func WithOnWin(fn game.WinFunc) Option {
	return func(g *Game) {
		g.onWin = fn
	}
}

// WithOnChange sets a callback run after every state change, including the
// delayed revert of a mismatched pair.
func WithOnChange(fn func()) Option {
	return func(g *Game) {
		g.onChange = fn
	}
}
