package playbot

import (
	"errors"
	"time"
)

// GameAll plays every active game in turn.
const GameAll = "all"

// Config holds configuration for a playbot run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Sessions int           // Number of sessions to play
	Workers  int           // Number of concurrent players
	Players  int           // Distinct player IDs; fewer than Sessions forces repeat claims
	Game     string        // Game key or GameAll
	Timeout  time.Duration // HTTP request timeout
	Verbose  bool          // Log every session
}

// Outcome is how one session ended from the bot's point of view.
type Outcome string

const (
	OutcomeWin       Outcome = "win"
	OutcomeLoss      Outcome = "loss"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeError     Outcome = "error"
)

// Stats holds run statistics.
type Stats struct {
	Sessions   int
	Wins       int
	Losses     int
	Duplicates int
	Errors     int
	ByGame     map[string]int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

func (s *Stats) add(key string, o Outcome) {
	s.Sessions++
	s.ByGame[key]++
	switch o {
	case OutcomeWin:
		s.Wins++
	case OutcomeLoss:
		s.Losses++
	case OutcomeDuplicate:
		s.Duplicates++
	default:
		s.Errors++
	}
}

var (
	ErrNoGames    = errors.New("no active games to play")
	ErrUnknownKey = errors.New("game is not in the catalog")
	ErrStuck      = errors.New("session made no progress")
)

func (c *Config) withDefaults() {
	if c.Sessions <= 0 {
		c.Sessions = 1
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Players <= 0 {
		c.Players = c.Sessions
	}
	if c.Game == "" {
		c.Game = GameAll
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}
