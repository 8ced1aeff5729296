// Package precision implements the Stroke-Precision game: trace a line, a
// circle and a triangle, scored by how far each sample strays from the
// reference shape.
package precision

import "math"

// LogicalSize is the side of the square coordinate space shapes live in.
const LogicalSize = 400.0

// Scoring constants.
const (
	deviationToAccuracy = 2.5
	deviationToTremor   = 3.0
	minSegmentLength    = 1e-6
)

// Point is a position in logical space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ShapeType names a reference shape.
type ShapeType string

const (
	ShapeLine     ShapeType = "line"
	ShapeCircle   ShapeType = "circle"
	ShapeTriangle ShapeType = "triangle"
)

// Reference geometry.
var (
	LineStart      = Point{X: 80, Y: 200}
	LineEnd        = Point{X: 320, Y: 200}
	CircleCenter   = Point{X: 200, Y: 200}
	CircleRadius   = 100.0
	TriangleApexes = [3]Point{{X: 200, Y: 110}, {X: 320, Y: 310}, {X: 80, Y: 310}}
)

// Shapes returns the reference shapes in play order.
func Shapes() []ShapeType {
	return []ShapeType{ShapeLine, ShapeCircle, ShapeTriangle}
}

// Distance returns how far p lies from the outline of s.
func (s ShapeType) Distance(p Point) float64 {
	switch s {
	case ShapeCircle:
		return DistanceToCircle(p, CircleCenter, CircleRadius)
	case ShapeTriangle:
		return DistanceToTriangle(p, TriangleApexes)
	default:
		return DistanceToSegment(p, LineStart, LineEnd)
	}
}

// DistanceToSegment returns the distance from p to the segment ab.
func DistanceToSegment(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq < minSegmentLength {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

// DistanceToCircle returns the distance from p to the circle outline.
func DistanceToCircle(p, center Point, radius float64) float64 {
	return math.Abs(math.Hypot(p.X-center.X, p.Y-center.Y) - radius)
}

// DistanceToTriangle returns the distance from p to the nearest edge.
func DistanceToTriangle(p Point, v [3]Point) float64 {
	return math.Min(
		DistanceToSegment(p, v[0], v[1]),
		math.Min(DistanceToSegment(p, v[1], v[2]), DistanceToSegment(p, v[2], v[0])),
	)
}

// Score is the result of one stroke, both in percent.
type Score struct {
	Accuracy int `json:"accuracy"`
	Tremor   int `json:"tremor"`
}

// Evaluate scores a stroke against shape. Fewer than two samples score
// zero accuracy and full tremor.
func Evaluate(points []Point, shape ShapeType) Score {
	if len(points) < 2 {
		return Score{Accuracy: 0, Tremor: 100}
	}

	devs := make([]float64, len(points))
	var sum float64
	for i, p := range points {
		devs[i] = shape.Distance(p)
		sum += devs[i]
	}
	mean := sum / float64(len(devs))

	var variance float64
	for _, d := range devs {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(devs))

	return Score{
		Accuracy: percent(100 - mean*deviationToAccuracy),
		Tremor:   percent(math.Sqrt(variance) * deviationToTremor),
	}
}

func percent(v float64) int {
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

// Viewport is the on-screen rectangle the 400x400 canvas is drawn into.
type Viewport struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ToLogical maps client coordinates into logical space. The canvas keeps its
// aspect ratio, so a non-square viewport letterboxes it around the centre.
func (v Viewport) ToLogical(clientX, clientY float64) Point {
	if v.Width <= 0 || v.Height <= 0 {
		return Point{X: clientX - v.Left, Y: clientY - v.Top}
	}
	scale := math.Min(v.Width/LogicalSize, v.Height/LogicalSize)
	content := LogicalSize * scale
	left := v.Left + (v.Width-content)/2
	top := v.Top + (v.Height-content)/2
	return Point{
		X: (clientX - left) * LogicalSize / content,
		Y: (clientY - top) * LogicalSize / content,
	}
}

// MapPoints converts a sequence of client samples into logical space.
func (v Viewport) MapPoints(client []Point) []Point {
	out := make([]Point, len(client))
	for i, p := range client {
		out[i] = v.ToLogical(p.X, p.Y)
	}
	return out
}

// Outline returns n points spread evenly along the reference outline of s.
func (s ShapeType) Outline(n int) []Point {
	if n < 2 {
		n = 2
	}
	out := make([]Point, 0, n)
	switch s {
	case ShapeCircle:
		for i := 0; i < n; i++ {
			a := 2 * math.Pi * float64(i) / float64(n)
			out = append(out, Point{
				X: CircleCenter.X + CircleRadius*math.Cos(a),
				Y: CircleCenter.Y + CircleRadius*math.Sin(a),
			})
		}
	case ShapeTriangle:
		for i := 0; i < n; i++ {
			t := 3 * float64(i) / float64(n)
			edge := int(t)
			a, b := TriangleApexes[edge], TriangleApexes[(edge+1)%3]
			out = append(out, lerp(a, b, t-float64(edge)))
		}
	default:
		for i := 0; i < n; i++ {
			out = append(out, lerp(LineStart, LineEnd, float64(i)/float64(n-1)))
		}
	}
	return out
}

func lerp(a, b Point, t float64) Point {
	return Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}
