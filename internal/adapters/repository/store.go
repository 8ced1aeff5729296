// Package repository stores game settings and the ledger of awarded wins.
package repository

import (
	"context"

	"github.com/okian/inkplay/internal/domain/model"
)

// SettingsStore provides read/write access to per-game configuration.
type SettingsStore interface {
	// List returns every stored setting ordered by game key.
	List(ctx context.Context) ([]model.Setting, error)

	// Get returns the setting for key.
	// Returns ErrNotFound if no row exists.
	Get(ctx context.Context, key string) (model.Setting, error)

	// Upsert clamps s, stamps UpdatedAt and writes it.
	// Unknown game keys are rejected with ErrUnknownGame.
	Upsert(ctx context.Context, s model.Setting) (model.Setting, error)
}

// Ledger records awarded wins.
type Ledger interface {
	// Append stores w. Appending an ID twice is a no-op.
	Append(ctx context.Context, w model.Win) error

	// Recent returns up to n wins, newest first.
	Recent(ctx context.Context, n int) ([]model.Win, error)
}

// Store is a settings store that also keeps the ledger.
type Store interface {
	SettingsStore
	Ledger
	Close() error
}

func normalize(s model.Setting) (model.Setting, error) {
	cfg, err := s.Config()
	if err != nil {
		return model.Setting{}, ErrUnknownGame
	}
	out := model.SettingFromConfig(cfg)
	out.UpdatedAt = s.UpdatedAt
	return out, nil
}
