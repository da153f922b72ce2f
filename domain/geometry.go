// Package domain contains the core concepts of the shared board: geometry,
// shapes, freehand strokes, text labels and the Board document itself.
// No runtime, network, or UI logic should be added here.
package domain

import "math"

// Point is a position on the board, in board units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned box. Width and height may be negative while a
// resize drag is in flight; containment treats such boxes as empty.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// Circle is a circular region, used as the stroke eraser footprint.
type Circle struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
}

func (c Circle) Contains(p Point) bool {
	dx := p.X - c.Center.X
	dy := p.Y - c.Center.Y
	return dx*dx+dy*dy <= c.Radius*c.Radius
}

// Color is a plain RGBA value. A concrete struct keeps colors comparable and
// stable on the wire, which value-equality lookups depend on.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

var (
	Black = Color{0, 0, 0, 255}
	White = Color{255, 255, 255, 255}
	Red   = Color{255, 0, 0, 255}
	Blue  = Color{0, 0, 255, 255}
)

// segmentDistance returns the shortest distance from (x, y) to the segment
// p1-p2, not to the infinite line through it.
func segmentDistance(p1, p2 Point, x, y float64) float64 {
	vx, vy := p2.X-p1.X, p2.Y-p1.Y
	wx, wy := x-p1.X, y-p1.Y

	lenSq := vx*vx + vy*vy
	if lenSq == 0 {
		return math.Hypot(wx, wy)
	}

	t := (wx*vx + wy*vy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Hypot(x-(p1.X+t*vx), y-(p1.Y+t*vy))
}
