// Package inkmix implements the Color-Mixing game: squeeze tubes into a
// neutral gray until it matches a target ink before the countdown ends.
package inkmix

import (
	"fmt"
	"math"
	"strings"
)

// RGB is a color with 8-bit channels.
type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Neutral is the mix every session starts from.
var Neutral = RGB{R: 128, G: 128, B: 128}

var maxDistance = math.Sqrt(3 * 255 * 255)

// Distance is the euclidean distance between two colors.
func Distance(a, b RGB) float64 {
	dr, dg, db := float64(a.R-b.R), float64(a.G-b.G), float64(a.B-b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// Similarity maps the distance between two colors to a 0..100 percentage.
func Similarity(a, b RGB) int {
	v := 100 - Distance(a, b)/maxDistance*100
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

// Hex renders the color as #rrggbb.
func (c RGB) Hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// Shift adds the deltas channel by channel, clamping to [0,255].
func (c RGB) Shift(dr, dg, db int) RGB {
	return RGB{R: channel(c.R + dr), G: channel(c.G + dg), B: channel(c.B + db)}
}

func channel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// Target is a named ink to match.
type Target struct {
	Name string `json:"name"`
	RGB  RGB    `json:"rgb"`
}

// Palette is the fixed set of targets a session picks from.
var Palette = []Target{
	{Name: "Kirli Bordo", RGB: RGB{R: 101, G: 28, B: 38}},
	{Name: "Eski Yeşil", RGB: RGB{R: 72, G: 98, B: 65}},
	{Name: "Gece Mavisi", RGB: RGB{R: 25, G: 35, B: 85}},
	{Name: "Sıcak Turuncu", RGB: RGB{R: 220, G: 95, B: 45}},
	{Name: "Soluk Mor", RGB: RGB{R: 120, G: 85, B: 130}},
	{Name: "Koyu Zeytin", RGB: RGB{R: 55, G: 62, B: 35}},
}

// Tube is one of the five mixing actions.
type Tube int

const (
	TubeRed Tube = iota
	TubeBlue
	TubeYellow
	TubeBlack
	TubeWhite
)

var tubeNames = [...]string{"red", "blue", "yellow", "black", "white"}

// Tubes lists every tube in display order.
func Tubes() []Tube { return []Tube{TubeRed, TubeBlue, TubeYellow, TubeBlack, TubeWhite} }

func (t Tube) String() string {
	if t < 0 || int(t) >= len(tubeNames) {
		return "unknown"
	}
	return tubeNames[t]
}

// ParseTube resolves a tube by name.
func ParseTube(name string) (Tube, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range tubeNames {
		if n == name {
			return Tube(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTube, name)
}

// Apply returns c after one squeeze of the tube.
func (t Tube) Apply(c RGB) RGB {
	switch t {
	case TubeRed:
		return c.Shift(28, -4, -4)
	case TubeBlue:
		return c.Shift(-4, -4, 28)
	case TubeYellow:
		return c.Shift(18, 18, -6)
	case TubeBlack:
		return c.Shift(-22, -22, -22)
	case TubeWhite:
		return c.Shift(18, 18, 18)
	default:
		return c
	}
}
