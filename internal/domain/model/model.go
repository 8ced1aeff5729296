// Package model contains domain records passed between layers.
package model

import (
	"time"

	"github.com/okian/inkplay/internal/domain/game"
)

// Setting is the stored configuration row of one game.
type Setting struct {
	GameKey          string    `json:"game_key"`
	DiscountRate     int       `json:"discount_rate"`
	IsActive         bool      `json:"is_active"`
	PromoCode        string    `json:"promo_code"`
	DifficultyTarget *int      `json:"difficulty_target,omitempty"`
	MinAccuracy      *int      `json:"min_accuracy,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Config converts the row into engine configuration.
func (s Setting) Config() (game.Config, error) {
	kind, err := game.ParseKind(s.GameKey)
	if err != nil {
		return game.Config{}, err
	}
	cfg := game.Config{
		Kind:             kind,
		DiscountRate:     s.DiscountRate,
		Active:           s.IsActive,
		PromoCode:        s.PromoCode,
		DifficultyTarget: s.DifficultyTarget,
		MinAccuracy:      s.MinAccuracy,
	}
	return cfg.Clamp(), nil
}

// SettingFromConfig builds the row for cfg.
func SettingFromConfig(cfg game.Config) Setting {
	cfg = cfg.Clamp()
	return Setting{
		GameKey:          cfg.Kind.Key(),
		DiscountRate:     cfg.DiscountRate,
		IsActive:         cfg.Active,
		PromoCode:        cfg.PromoCode,
		DifficultyTarget: cfg.DifficultyTarget,
		MinAccuracy:      cfg.MinAccuracy,
	}
}

// DefaultSettings returns the rows every store starts with.
func DefaultSettings() []Setting {
	out := make([]Setting, 0, len(game.Kinds()))
	for _, k := range game.Kinds() {
		out = append(out, SettingFromConfig(game.DefaultConfig(k)))
	}
	return out
}

// Win is an awarded promo code: one player won one game.
type Win struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	PlayerID     string    `json:"player_id"`
	GameKey      string    `json:"game_key"`
	DiscountRate int       `json:"discount_rate"`
	PromoCode    string    `json:"promo_code"`
	WonAt        time.Time `json:"won_at"`
}
