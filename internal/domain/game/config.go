package game

import "strings"

// Fallback thresholds used when the configuration carries none.
const (
	DefaultPrecisionTarget = 90
	DefaultInkMixTarget    = 95
	DefaultMemoryTarget    = 100
)

// Config is the externally supplied configuration of one game.
// Numeric fields are expected to be clamped by the caller; the accessors
// clamp again on read.
type Config struct {
	Kind             Kind
	DiscountRate     int
	Active           bool
	PromoCode        string
	DifficultyTarget *int
	MinAccuracy      *int
}

// DefaultConfig returns the configuration a game has before anyone edits it.
func DefaultConfig(k Kind) Config {
	rate := 10
	if k == KindMemory {
		rate = 20
	}
	return Config{
		Kind:         k,
		DiscountRate: rate,
		Active:       true,
		PromoCode:    k.DefaultPromoCode(),
	}
}

// Discount returns the discount rate clamped to [0,100].
func (c Config) Discount() int { return clampPercent(c.DiscountRate) }

// Code returns the promo code, falling back to the per-game default when blank.
func (c Config) Code() string {
	if code := strings.TrimSpace(c.PromoCode); code != "" {
		return code
	}
	return c.Kind.DefaultPromoCode()
}

// Target returns the win threshold in percent.
// Precision falls back to MinAccuracy before its default; the other games
// only look at DifficultyTarget.
func (c Config) Target() int {
	if c.DifficultyTarget != nil {
		return clampPercent(*c.DifficultyTarget)
	}
	switch c.Kind {
	case KindPrecision:
		if c.MinAccuracy != nil {
			return clampPercent(*c.MinAccuracy)
		}
		return DefaultPrecisionTarget
	case KindInkMix:
		return DefaultInkMixTarget
	default:
		return DefaultMemoryTarget
	}
}

// Clamp returns a copy with every numeric field in [0,100] and the promo
// code trimmed.
func (c Config) Clamp() Config {
	out := c
	out.DiscountRate = clampPercent(c.DiscountRate)
	out.PromoCode = strings.TrimSpace(c.PromoCode)
	if c.DifficultyTarget != nil {
		v := clampPercent(*c.DifficultyTarget)
		out.DifficultyTarget = &v
	}
	if c.MinAccuracy != nil {
		v := clampPercent(*c.MinAccuracy)
		out.MinAccuracy = &v
	}
	return out
}

// Win builds the event reported when the game is won.
func (c Config) Win() WinEvent {
	return WinEvent{Kind: c.Kind, DiscountRate: c.Discount(), PromoCode: c.Code()}
}

// Percent is a helper for building optional targets.
func Percent(v int) *int { return &v }

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
