package service

import (
	"time"

	"github.com/okian/inkplay/internal/adapters/claims"
	"github.com/okian/inkplay/internal/adapters/repository"
	"github.com/okian/inkplay/internal/domain/game"
	"github.com/okian/inkplay/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSettingsStore sets where game settings are read from.
func WithSettingsStore(store repository.SettingsStore) Option {
	return func(s *Service) {
		if store != nil {
			s.settings = store
		}
	}
}

// WithClaimStore sets the one-code-per-player store.
func WithClaimStore(store claims.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.claims = store
		}
	}
}

// WithLedger sets where awarded wins are persisted.
func WithLedger(l repository.Ledger) Option {
	return func(s *Service) {
		if l != nil {
			s.ledger = l
		}
	}
}

// WithPortfolio sets the images memory decks are drawn from.
func WithPortfolio(images []string) Option {
	return func(s *Service) {
		s.portfolio = append([]string(nil), images...)
	}
}

// WithSessionTTL sets how long an idle session survives.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithJanitorInterval sets how often idle sessions are swept.
func WithJanitorInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.janitorInterval = d
		}
	}
}

// WithLedgerWorkers sets the number of ledger writers.
func WithLedgerWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithLedgerQueueSize sets the capacity of the ledger queue.
func WithLedgerQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithRevealDelay sets how long a mismatched memory pair stays face up.
func WithRevealDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.revealDelay = d
		}
	}
}

// WithInkMixTimeLimit sets the ink-mix countdown.
func WithInkMixTimeLimit(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.inkMixLimit = d
		}
	}
}

// WithRandomSource sets the randomness used for decks and targets.
func WithRandomSource(r game.Random) Option {
	return func(s *Service) {
		if r != nil {
			s.rnd = r
		}
	}
}

// WithScheduler sets the timer source handed to the engines.
func WithScheduler(sched game.Scheduler) Option {
	return func(s *Service) {
		if sched != nil {
			s.sched = sched
		}
	}
}

// WithClock replaces time.Now for session bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
