package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/inkplay/internal/adapters/repository"
	"github.com/okian/inkplay/internal/domain/model"
	"github.com/okian/inkplay/pkg/logger"
)

// Settings returns every stored game setting.
func (s *Service) Settings(ctx context.Context) ([]model.Setting, error) {
	return s.settings.List(ctx)
}

// UpsertSetting stores a game setting. Values are clamped on write and the
// stored row is returned. Running sessions keep the settings they started with.
func (s *Service) UpsertSetting(ctx context.Context, in model.Setting) (model.Setting, error) {
	out, err := s.settings.Upsert(ctx, in)
	if errors.Is(err, repository.ErrUnknownGame) {
		return model.Setting{}, fmt.Errorf("%w: %s", ErrUnknownGame, in.GameKey)
	}
	if err != nil {
		return model.Setting{}, err
	}
	s.log().Info(ctx, "game setting updated",
		logger.String("game", out.GameKey),
		logger.Int("discount_rate", out.DiscountRate),
		logger.Bool("active", out.IsActive),
	)
	return out, nil
}

// RecentWins returns the newest awarded wins from the ledger.
func (s *Service) RecentWins(ctx context.Context, n int) ([]model.Win, error) {
	wins, err := s.ledger.Recent(ctx, n)
	if errors.Is(err, repository.ErrInvalidLimit) {
		return nil, fmt.Errorf("%w: limit %d", ErrInvalidInput, n)
	}
	return wins, err
}
