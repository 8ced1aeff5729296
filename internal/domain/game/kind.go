// Package game holds what the three mini-game engines share: the game kinds,
// their configuration, the win event and the single-shot latch guarding it.
package game

import "strings"

// Kind identifies one of the mini-games.
type Kind int

const (
	KindMemory Kind = iota
	KindPrecision
	KindInkMix
)

// Stable identifiers used by the configuration store and the HTTP API.
const (
	KeyMemory    = "memory_cards"
	KeyPrecision = "precision_trace"
	KeyInkMix    = "ink_mix_master"
)

// Info is the static catalog entry of a game.
type Info struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var catalog = map[Kind]Info{
	KindMemory: {
		Key:         KeyMemory,
		Name:        "Memory Cards",
		Description: "Find all six pairs of portfolio cards to unlock the discount.",
	},
	KindInkMix: {
		Key:         KeyInkMix,
		Name:        "Ink Mix Master",
		Description: "Mix the tubes until your ink matches the target shade before time runs out.",
	},
	KindPrecision: {
		Key:         KeyPrecision,
		Name:        "Precision Trace",
		Description: "Trace a line, a circle and a triangle with a steady hand.",
	},
}

// Key returns the stable identifier of the kind, or "" for an unknown kind.
func (k Kind) Key() string { return catalog[k].Key }

// String implements fmt.Stringer.
func (k Kind) String() string {
	if key := k.Key(); key != "" {
		return key
	}
	return "unknown"
}

// Info returns the catalog entry of the kind.
func (k Kind) Info() Info { return catalog[k] }

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := catalog[k]
	return ok
}

// DefaultPromoCode is the code handed out when the configuration has none.
func (k Kind) DefaultPromoCode() string {
	switch k {
	case KindMemory:
		return "TATTOO2024"
	case KindPrecision:
		return "TATTOO15"
	case KindInkMix:
		return "INKMIX10"
	default:
		return ""
	}
}

// ParseKind resolves a stable identifier into a Kind.
func ParseKind(key string) (Kind, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for k, info := range catalog {
		if info.Key == key {
			return k, nil
		}
	}
	return 0, ErrUnknownKind
}

// Catalog lists every game in display order.
func Catalog() []Info {
	return []Info{catalog[KindMemory], catalog[KindInkMix], catalog[KindPrecision]}
}

// Kinds lists every known kind in display order.
func Kinds() []Kind {
	return []Kind{KindMemory, KindInkMix, KindPrecision}
}
