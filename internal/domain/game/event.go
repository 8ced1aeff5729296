package game

import "sync/atomic"

// WinEvent is reported to the host at most once per session.
type WinEvent struct {
	Kind         Kind   `json:"-"`
	DiscountRate int    `json:"discount_rate"`
	PromoCode    string `json:"promo_code"`
}

// WinFunc receives the win of a session.
type WinFunc func(WinEvent)

// Latch is a single-shot guard. The zero value is ready to use.
type Latch struct {
	fired atomic.Bool
}

// Fire returns true for the first caller only.
func (l *Latch) Fire() bool {
	return l.fired.CompareAndSwap(false, true)
}

// Fired reports whether Fire has already succeeded.
func (l *Latch) Fired() bool {
	return l.fired.Load()
}
