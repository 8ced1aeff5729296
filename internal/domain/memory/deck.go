// Package memory implements the Memory-Match card game: six pairs of
// portfolio images, two cards open at a time, win when everything matched.
package memory

import (
	"fmt"
	"strings"

	"github.com/okian/inkplay/internal/domain/game"
)

// Pairs is the number of image pairs on the board.
const Pairs = 6

// Cards is the number of slots on the board.
const Cards = Pairs * 2

// FallbackImages substitute for an empty image pool.
var FallbackImages = []string{
	"/tattoo-1.jpg",
	"/tattoo-2.jpg",
	"/tattoo-3.jpg",
	"/tattoo-4.jpg",
	"/tattoo-6.jpg",
	"/tattoo-1.jpg",
}

// Card is one slot of the deck. Two cards share a PairID.
type Card struct {
	ID     string
	PairID string
	Image  string
}

// BuildDeck picks six images from pool and returns the shuffled 12-card deck.
// With six or more usable images they are drawn without repetition; with
// fewer the pool is cycled; with none the fallback set is used.
func BuildDeck(pool []string, rnd game.Random) []Card {
	images := pickImages(pool, rnd)

	deck := make([]Card, 0, Cards)
	for i, img := range images {
		pair := fmt.Sprintf("p-%d", i)
		deck = append(deck,
			Card{ID: fmt.Sprintf("a-%d", i), PairID: pair, Image: img},
			Card{ID: fmt.Sprintf("b-%d", i), PairID: pair, Image: img},
		)
	}
	rnd.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

func pickImages(pool []string, rnd game.Random) []string {
	usable := make([]string, 0, len(pool))
	for _, p := range pool {
		if p = strings.TrimSpace(p); p != "" {
			usable = append(usable, p)
		}
	}

	switch {
	case len(usable) >= Pairs:
		// Partial Fisher-Yates: the first Pairs entries end up a uniform sample.
		for i := 0; i < Pairs; i++ {
			j := i + rnd.Intn(len(usable)-i)
			usable[i], usable[j] = usable[j], usable[i]
		}
		return usable[:Pairs]
	case len(usable) > 0:
		out := make([]string, Pairs)
		for i := range out {
			out[i] = usable[i%len(usable)]
		}
		return out
	default:
		out := make([]string, Pairs)
		copy(out, FallbackImages)
		return out
	}
}
