// Package service hosts game sessions and implements the dependencies
// required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/inkplay/internal/adapters/claims"
	"github.com/okian/inkplay/internal/adapters/mq/queue"
	"github.com/okian/inkplay/internal/adapters/mq/worker"
	"github.com/okian/inkplay/internal/adapters/repository"
	"github.com/okian/inkplay/internal/domain/game"
	"github.com/okian/inkplay/internal/domain/model"
	"github.com/okian/inkplay/pkg/logger"
	"github.com/okian/inkplay/pkg/metrics"
)

const (
	defaultSessionTTL      = 30 * time.Minute
	defaultJanitorInterval = time.Minute
	defaultWorkerCount     = 2
	defaultQueueSize       = 1024
	claimTimeout           = 3 * time.Second
	stopTimeout            = 10 * time.Second
)

// Service owns live sessions, the claim store and the ledger pipeline.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	settings repository.SettingsStore
	ledger   repository.Ledger
	claims   claims.Store
	queue    *queue.InMemoryQueue
	pool     *worker.Pool

	// Configuration
	portfolio       []string
	sessionTTL      time.Duration
	janitorInterval time.Duration
	workerCount     int
	queueSize       int
	revealDelay     time.Duration
	inkMixLimit     time.Duration
	rnd             game.Random
	sched           game.Scheduler
	now             func() time.Time

	// State
	sessions map[string]*session
	active   map[game.Kind]int
	started  bool
	stopCh   chan struct{}
	janitor  sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service. Missing stores default to in-memory ones.
func New(opts ...Option) *Service {
	s := &Service{
		sessionTTL:      defaultSessionTTL,
		janitorInterval: defaultJanitorInterval,
		workerCount:     defaultWorkerCount,
		queueSize:       defaultQueueSize,
		sched:           game.RealScheduler(),
		now:             time.Now,
		sessions:        make(map[string]*session),
		active:          make(map[game.Kind]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.settings == nil || s.ledger == nil {
		mem := repository.NewMemoryStore()
		if s.settings == nil {
			s.settings = mem
		}
		if s.ledger == nil {
			s.ledger = mem
		}
	}
	if s.claims == nil {
		s.claims = claims.NewMemoryStore()
	}
	if s.rnd == nil {
		s.rnd = game.NewRandom(0)
	}
	return s
}

// Start launches the ledger workers and the idle-session janitor.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting game service...")

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.ledger,
		worker.WithLogger(s.logger.Named("ledger")))
	s.pool.Start(context.WithoutCancel(ctx))

	s.stopCh = make(chan struct{})
	s.janitor.Add(1)
	go s.runJanitor(s.stopCh)

	s.started = true
	s.logger.Info(ctx, "game service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("sessionTTL", s.sessionTTL),
	)
	return nil
}

// Stop closes every live session and drains the ledger queue.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	live := make([]*session, 0, len(s.sessions))
	for id, ss := range s.sessions {
		live = append(live, ss)
		delete(s.sessions, id)
	}
	for k := range s.active {
		s.active[k] = 0
		metrics.UpdateActiveSessions(k.Key(), 0)
	}
	pool := s.pool
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping game service...", logger.Int("liveSessions", len(live)))

	s.janitor.Wait()
	for _, ss := range live {
		s.finish(ss, "shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(ctx, "ledger shutdown failed", logger.Error(err))
	}
	s.logger.Info(ctx, "game service stopped",
		logger.Int64("ledgerWritten", pool.Processed()),
		logger.Int64("ledgerFailed", pool.Failed()),
	)
}

func (s *Service) runJanitor(stop <-chan struct{}) {
	defer s.janitor.Done()
	ticker := time.NewTicker(s.janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := s.Sweep(context.Background()); n > 0 {
				s.logger.Debug(context.Background(), "expired idle sessions", logger.Int("count", n))
			}
		}
	}
}

// Sweep closes sessions idle for longer than the session TTL and returns how
// many it removed.
func (s *Service) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.sessionTTL)

	s.mu.Lock()
	var expired []*session
	for id, ss := range s.sessions {
		if ss.idleSince().Before(cutoff) {
			expired = append(expired, ss)
			delete(s.sessions, id)
			s.decActiveLocked(ss.kind)
		}
	}
	s.mu.Unlock()

	for _, ss := range expired {
		s.logger.Info(ctx, "session expired",
			logger.String("session_id", ss.id),
			logger.String("game", ss.kind.Key()),
		)
		s.finish(ss, "expired")
	}
	return len(expired)
}

func (s *Service) decActiveLocked(k game.Kind) {
	if s.active[k] > 0 {
		s.active[k]--
	}
	metrics.UpdateActiveSessions(k.Key(), s.active[k])
}

// finish closes ss and records its outcome once. reason names how a session
// that never reached a terminal phase ended.
func (s *Service) finish(ss *session, reason string) {
	phase := ss.engine().Phase()
	if !ss.close() {
		return
	}
	if ss.markFinished() {
		o := reason
		if terminal(phase) {
			o = outcome(phase)
		}
		metrics.RecordSessionFinished(ss.kind.Key(), o)
	}
}

// afterChange runs after every engine transition, outside engine locks.
func (s *Service) afterChange(ss *session) {
	v := ss.view()
	if v.Finished && ss.markFinished() {
		metrics.RecordSessionFinished(ss.kind.Key(), outcome(v.Phase))
	}
	ss.publish(v)
}

// handleWin is the host side of an engine's win callback: one code per
// player per game, the rest are told they already claimed it.
func (s *Service) handleWin(ss *session, ev game.WinEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), claimTimeout)
	defer cancel()

	key := ss.kind.Key()
	log := s.log().With(
		logger.String("session_id", ss.id),
		logger.String("player_id", ss.playerID),
		logger.String("game", key),
	)

	first, err := s.claims.Claim(ctx, ss.playerID, key)
	if err != nil {
		// Fail open: the player did win.
		log.Error(ctx, "claim store unavailable, awarding without claim", logger.Error(err))
		metrics.RecordErrorByComponent("claims", "claim")
		first = true
	}
	if !first {
		ss.mu.Lock()
		ss.claim = ClaimAlreadyClaimed
		ss.mu.Unlock()
		metrics.RecordDuplicateClaim(key)
		log.Info(ctx, "win already claimed")
		return
	}

	ss.mu.Lock()
	ss.claim = ClaimAwarded
	ss.award = &Award{Code: ev.PromoCode, DiscountRate: ev.DiscountRate}
	ss.mu.Unlock()
	metrics.RecordWin(key)

	win := model.Win{
		ID:           uuid.NewString(),
		SessionID:    ss.id,
		PlayerID:     ss.playerID,
		GameKey:      key,
		DiscountRate: ev.DiscountRate,
		PromoCode:    ev.PromoCode,
		WonAt:        s.now().UTC(),
	}
	if q := s.ledgerQueue(); q == nil || !q.Enqueue(ctx, win) {
		log.Warn(ctx, "ledger queue rejected win", logger.String("win_id", win.ID))
		return
	}
	log.Info(ctx, "discount awarded",
		logger.String("win_id", win.ID),
		logger.Int("discount_rate", ev.DiscountRate),
	)
}

func (s *Service) ledgerQueue() *queue.InMemoryQueue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	l := s.logger
	s.mu.RUnlock()
	if l == nil {
		return logger.Get().Named("service")
	}
	return l
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"sessions":    len(s.sessions),
	}

	byGame := make(map[string]int, len(s.active))
	for _, k := range game.Kinds() {
		byGame[k.Key()] = s.active[k]
	}
	stats["sessionsByGame"] = byGame

	ctx, cancel := context.WithTimeout(context.Background(), claimTimeout)
	defer cancel()
	if n, err := s.claims.Size(ctx); err == nil {
		stats["claims"] = n
	}

	if s.started {
		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		stats["ledgerWritten"] = s.pool.Processed()
		stats["ledgerFailed"] = s.pool.Failed()
		metrics.UpdateLedgerQueue(queueLen, s.queue.Capacity())
	}
	return stats
}
