package playbot

import (
	"context"
	"fmt"
	"time"

	service "github.com/okian/inkplay/internal/app"
	"github.com/okian/inkplay/internal/domain/game"
	"github.com/okian/inkplay/internal/domain/inkmix"
	"github.com/okian/inkplay/internal/domain/memory"
	"github.com/okian/inkplay/internal/domain/precision"
)

const (
	maxInkSqueezes = 60
	outlineSamples = 64
	lockedPoll     = 50 * time.Millisecond
)

// play drives one session to its end and returns the final view.
func play(ctx context.Context, c *Client, v service.SessionView) (service.SessionView, error) {
	switch v.Game {
	case game.KeyMemory:
		return playMemory(ctx, c, v)
	case game.KeyInkMix:
		return playInkMix(ctx, c, v)
	case game.KeyPrecision:
		return playPrecision(ctx, c, v)
	default:
		return v, fmt.Errorf("%w: %s", ErrUnknownKey, v.Game)
	}
}

// board remembers every image the bot has seen face up and every pair that
// turned out not to match. Two pairs may share an image.
type board struct {
	images map[int]string
	misses map[[2]int]bool
}

func newBoard() *board {
	return &board{images: make(map[int]string), misses: make(map[[2]int]bool)}
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func (b *board) learn(v *memory.View) {
	var open []int
	for _, card := range v.Cards {
		if card.Image != "" {
			b.images[card.Index] = card.Image
		}
		if card.State == memory.Open {
			open = append(open, card.Index)
		}
	}
	if v.Locked && len(open) == 2 {
		b.misses[pairKey(open[0], open[1])] = true
	}
}

// candidate reports whether x and y may still be a pair.
func (b *board) candidate(x, y int) bool {
	if x == y || b.misses[pairKey(x, y)] {
		return false
	}
	ix, okx := b.images[x]
	iy, oky := b.images[y]
	return okx && oky && ix == iy
}

// next picks the card to turn: the partner of an open card when it is
// known, then one half of a known pair, then an unseen card.
func (b *board) next(v *memory.View) (int, bool) {
	var closed, open []int
	for _, card := range v.Cards {
		switch card.State {
		case memory.Closed:
			closed = append(closed, card.Index)
		case memory.Open:
			open = append(open, card.Index)
		}
	}

	if len(open) == 1 {
		for _, idx := range closed {
			if b.candidate(open[0], idx) {
				return idx, true
			}
		}
		return b.unseen(closed)
	}

	for i, x := range closed {
		for _, y := range closed[i+1:] {
			if b.candidate(x, y) {
				return x, true
			}
		}
	}
	return b.unseen(closed)
}

func (b *board) unseen(closed []int) (int, bool) {
	for _, idx := range closed {
		if _, known := b.images[idx]; !known {
			return idx, true
		}
	}
	if len(closed) > 0 {
		return closed[0], true
	}
	return 0, false
}

func playMemory(ctx context.Context, c *Client, v service.SessionView) (service.SessionView, error) {
	b := newBoard()
	maxMoves := memory.Cards * 4
	for step := 0; step < maxMoves*2; step++ {
		if v.Finished || v.Memory == nil {
			return v, nil
		}
		b.learn(v.Memory)
		if v.Memory.Locked {
			if err := sleep(ctx, lockedPoll); err != nil {
				return v, err
			}
			next, err := c.Session(ctx, v.ID)
			if err != nil {
				return v, err
			}
			v = next
			continue
		}
		idx, ok := b.next(v.Memory)
		if !ok {
			return v, ErrStuck
		}
		next, err := c.Reveal(ctx, v.ID, idx)
		if err != nil {
			return v, err
		}
		v = next
	}
	return v, ErrStuck
}

// nextTube returns the tube whose squeeze lands closest to target.
func nextTube(mix, target inkmix.RGB) inkmix.Tube {
	best := inkmix.TubeRed
	bestDist := -1.0
	for _, t := range inkmix.Tubes() {
		d := inkmix.Distance(t.Apply(mix), target)
		if bestDist < 0 || d < bestDist {
			best, bestDist = t, d
		}
	}
	return best
}

func playInkMix(ctx context.Context, c *Client, v service.SessionView) (service.SessionView, error) {
	for i := 0; i < maxInkSqueezes; i++ {
		if v.Finished || v.InkMix == nil {
			return v, nil
		}
		tube := nextTube(v.InkMix.Mix, v.InkMix.Target.RGB)
		next, err := c.Mix(ctx, v.ID, tube.String())
		if err != nil {
			return v, err
		}
		v = next
	}
	return v, nil
}

func playPrecision(ctx context.Context, c *Client, v service.SessionView) (service.SessionView, error) {
	for range precision.Shapes() {
		if v.Finished || v.Precision == nil || v.Precision.Shape == "" {
			return v, nil
		}
		next, err := c.Stroke(ctx, v.ID, v.Precision.Shape.Outline(outlineSamples))
		if err != nil {
			return v, err
		}
		v = next
	}
	return v, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
