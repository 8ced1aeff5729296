package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/inkplay/internal/adapters/repository"
	"github.com/okian/inkplay/internal/domain/game"
	"github.com/okian/inkplay/internal/domain/inkmix"
	"github.com/okian/inkplay/internal/domain/memory"
	"github.com/okian/inkplay/internal/domain/precision"
	"github.com/okian/inkplay/pkg/logger"
	"github.com/okian/inkplay/pkg/metrics"
)

// GameInfo is a playable game as listed to players. The promo code is
// never listed.
type GameInfo struct {
	game.Info
	DiscountRate int `json:"discount_rate"`
	Target       int `json:"target"`
}

// StrokeInput is one traced stroke. Without a viewport the points are
// already in logical space.
type StrokeInput struct {
	Points   []precision.Point   `json:"points"`
	Viewport *precision.Viewport `json:"viewport,omitempty"`
}

// Catalog lists the active games in display order.
func (s *Service) Catalog(ctx context.Context) ([]GameInfo, error) {
	out := make([]GameInfo, 0, len(game.Kinds()))
	for _, info := range game.Catalog() {
		k, err := game.ParseKind(info.Key)
		if err != nil {
			return nil, err
		}
		cfg, err := s.config(ctx, k)
		if err != nil {
			return nil, err
		}
		if !cfg.Active {
			continue
		}
		out = append(out, GameInfo{Info: info, DiscountRate: cfg.Discount(), Target: cfg.Target()})
	}
	return out, nil
}

// config returns the stored configuration of k, or its defaults.
func (s *Service) config(ctx context.Context, k game.Kind) (game.Config, error) {
	setting, err := s.settings.Get(ctx, k.Key())
	if errors.Is(err, repository.ErrNotFound) {
		return game.DefaultConfig(k), nil
	}
	if err != nil {
		return game.Config{}, fmt.Errorf("load settings for %s: %w", k.Key(), err)
	}
	return setting.Config()
}

// StartSession opens a new session of the game named key for playerID.
func (s *Service) StartSession(ctx context.Context, key, playerID string) (SessionView, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return SessionView{}, ErrPlayerRequired
	}
	k, err := game.ParseKind(key)
	if err != nil {
		return SessionView{}, fmt.Errorf("%w: %s", ErrUnknownGame, key)
	}
	cfg, err := s.config(ctx, k)
	if err != nil {
		return SessionView{}, err
	}
	if !cfg.Active {
		return SessionView{}, fmt.Errorf("%w: %s", ErrGameInactive, key)
	}

	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return SessionView{}, ErrNotStarted
	}

	now := s.now()
	ss := &session{
		id:        uuid.NewString(),
		playerID:  playerID,
		kind:      k,
		createdAt: now.UTC(),
		lastSeen:  now.UTC(),
	}
	onWin := func(ev game.WinEvent) { s.handleWin(ss, ev) }
	onChange := func() { s.afterChange(ss) }

	switch k {
	case game.KindMemory:
		ss.mem = memory.New(cfg, memory.BuildDeck(s.portfolio, s.rnd),
			memory.WithRevealDelay(s.revealDelay),
			memory.WithScheduler(s.sched),
			memory.WithOnWin(onWin),
			memory.WithOnChange(onChange),
		)
	case game.KindPrecision:
		ss.prec = precision.New(cfg,
			precision.WithOnWin(onWin),
			precision.WithOnChange(onChange),
		)
	case game.KindInkMix:
		ss.ink = inkmix.New(cfg,
			inkmix.WithRandom(s.rnd),
			inkmix.WithTimeLimit(s.inkMixLimit),
			inkmix.WithScheduler(s.sched),
			inkmix.WithOnWin(onWin),
			inkmix.WithOnChange(onChange),
		)
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		ss.engine().Close()
		return SessionView{}, ErrNotStarted
	}
	s.sessions[ss.id] = ss
	s.active[k]++
	metrics.UpdateActiveSessions(k.Key(), s.active[k])
	s.mu.Unlock()

	if ss.ink != nil {
		ss.ink.Start()
	}
	metrics.RecordSessionStarted(k.Key())
	s.log().Info(ctx, "session started",
		logger.String("session_id", ss.id),
		logger.String("player_id", playerID),
		logger.String("game", k.Key()),
	)
	return ss.view(), nil
}

func (s *Service) lookup(id string) (*session, error) {
	s.mu.RLock()
	ss, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	ss.touch(s.now().UTC())
	return ss, nil
}

// Session returns the current view of a session.
func (s *Service) Session(_ context.Context, id string) (SessionView, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	return ss.view(), nil
}

// Reveal flips the memory card at index.
func (s *Service) Reveal(_ context.Context, id string, index int) (SessionView, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	if ss.mem == nil {
		return SessionView{}, ErrWrongGame
	}
	if index < 0 || index >= memory.Cards {
		return SessionView{}, fmt.Errorf("%w: card index %d", ErrInvalidInput, index)
	}
	if ss.mem.Reveal(index) {
		metrics.RecordCardReveal()
	}
	return ss.view(), nil
}

// Stroke scores one traced stroke against the current precision shape.
func (s *Service) Stroke(_ context.Context, id string, in StrokeInput) (SessionView, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	if ss.prec == nil {
		return SessionView{}, ErrWrongGame
	}
	points := in.Points
	if in.Viewport != nil {
		if in.Viewport.Width <= 0 || in.Viewport.Height <= 0 {
			return SessionView{}, fmt.Errorf("%w: empty viewport", ErrInvalidInput)
		}
		points = in.Viewport.MapPoints(points)
	}

	shape := ss.prec.Snapshot().Shape
	if score, ok := ss.prec.SubmitStroke(points); ok {
		metrics.RecordStrokeAccuracy(string(shape), score.Accuracy)
	}
	return ss.view(), nil
}

// Mix squeezes the named tube into an ink-mix session.
func (s *Service) Mix(_ context.Context, id, tube string) (SessionView, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	if ss.ink == nil {
		return SessionView{}, ErrWrongGame
	}
	t, err := inkmix.ParseTube(tube)
	if err != nil {
		return SessionView{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if ss.ink.Mix(t) {
		metrics.RecordTubeSqueeze(t.String())
	}
	return ss.view(), nil
}

// EndSession closes a session and forgets it. The final view is returned.
func (s *Service) EndSession(ctx context.Context, id string) (SessionView, error) {
	s.mu.Lock()
	ss, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
		s.decActiveLocked(ss.kind)
	}
	s.mu.Unlock()
	if !ok {
		return SessionView{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.finish(ss, "abandoned")
	s.log().Info(ctx, "session ended",
		logger.String("session_id", id),
		logger.String("game", ss.kind.Key()),
	)
	return ss.view(), nil
}

// Subscribe streams views of a session. The channel is closed when the
// session ends or cancel is called.
func (s *Service) Subscribe(id string) (<-chan SessionView, func(), error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := ss.subscribe()
	return ch, cancel, nil
}
