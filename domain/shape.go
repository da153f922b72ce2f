package domain

import "slices"

// ShapeKind discriminates the geometry variant of a Shape.
type ShapeKind string

const (
	KindRectangle ShapeKind = "rectangle"
	KindEllipse   ShapeKind = "ellipse"
	KindLine      ShapeKind = "line"
)

// Control point indices for rectangular shapes, top row left to right, then
// the two middle handles, then the bottom row. Lines only use the first two.
const (
	ControlTopLeft = iota
	ControlTopMiddle
	ControlTopRight
	ControlMiddleLeft
	ControlMiddleRight
	ControlBottomLeft
	ControlBottomMiddle
	ControlBottomRight
)

// NoControl marks "no control point selected".
const NoControl = -1

const controlBoxSize = 8

// lineHitTolerance is the maximum perpendicular distance, in board units,
// at which a point still counts as hitting a line shape.
const lineHitTolerance = 10

// Shape is one drawable item on the board. Rectangular kinds (rectangle,
// ellipse) use Bounds; the line kind uses Start/End and leaves Bounds zero.
//
// Remote callers identify a shape by sending the whole value back to the
// host; Equal is therefore the identity contract, not a convenience.
type Shape struct {
	Kind          ShapeKind `json:"kind"`
	Bounds        Rect      `json:"bounds"`
	Start         Point     `json:"start"`
	End           Point     `json:"end"`
	BorderColor   Color     `json:"borderColor"`
	FillColor     *Color    `json:"fillColor,omitempty"`
	Label         string    `json:"label,omitempty"`
	LabelColor    Color     `json:"labelColor"`
	ControlPoints []Rect    `json:"controlPoints"`

	// Selection state is transient: it follows the shape across the wire but
	// never participates in equality.
	Selected        bool `json:"selected"`
	SelectedControl int  `json:"selectedControl"`
}

// NewShape builds a default-styled shape of the given kind at the standard
// spawn geometry: black border, black label color, no fill, no label.
func NewShape(kind ShapeKind) Shape {
	s := Shape{
		Kind:            kind,
		BorderColor:     Black,
		LabelColor:      Black,
		SelectedControl: NoControl,
	}
	switch kind {
	case KindRectangle:
		s.Bounds = Rect{X: 50, Y: 50, Width: 50, Height: 50}
	case KindEllipse:
		s.Bounds = Rect{X: 50, Y: 200, Width: 50, Height: 50}
	case KindLine:
		s.Start = Point{X: 50, Y: 350}
		s.End = Point{X: 50, Y: 450}
	}
	s.resetControlPoints()
	return s
}

// resetControlPoints regenerates the handle boxes from the current geometry.
// Every geometry mutation must call this; consumers may rely on the handles
// never being stale.
func (s *Shape) resetControlPoints() {
	const size = controlBoxSize

	if s.Kind == KindLine {
		s.ControlPoints = []Rect{
			{X: s.Start.X - size/2, Y: s.Start.Y - size/2, Width: size, Height: size},
			{X: s.End.X - size/2, Y: s.End.Y - size/2, Width: size, Height: size},
		}
		return
	}

	x := s.Bounds.X - size/2
	y := s.Bounds.Y - size/2
	w := s.Bounds.Width
	h := s.Bounds.Height

	anchors := [][2]float64{
		{x, y}, {x + w/2, y}, {x + w, y},
		{x, y + h/2}, {x + w, y + h/2},
		{x, y + h}, {x + w/2, y + h}, {x + w, y + h},
	}

	points := make([]Rect, 0, len(anchors))
	for _, a := range anchors {
		points = append(points, Rect{X: a[0], Y: a[1], Width: size, Height: size})
	}
	s.ControlPoints = points
}

// MoveBy translates the shape geometry and regenerates its control points.
func (s *Shape) MoveBy(dx, dy float64) {
	if s.Kind == KindLine {
		s.Start.X += dx
		s.Start.Y += dy
		s.End.X += dx
		s.End.Y += dy
	} else {
		s.Bounds.X += dx
		s.Bounds.Y += dy
	}
	s.resetControlPoints()
}

// Adjust recomputes the geometry as if the given control point had been
// dragged to (x, y). The control-to-edge mapping is part of the protocol:
// index 0 moves origin and size, index 4 moves only the width, and so on.
func (s *Shape) Adjust(control int, x, y float64) {
	if s.Kind == KindLine {
		switch control {
		case 0:
			s.Start = Point{X: x, Y: y}
		case 1:
			s.End = Point{X: x, Y: y}
		}
		s.resetControlPoints()
		return
	}

	b := s.Bounds
	switch control {
	case ControlTopLeft:
		b.Width += s.Bounds.X - x
		b.Height += s.Bounds.Y - y
		b.X = x
		b.Y = y
	case ControlTopMiddle:
		b.Height += s.Bounds.Y - y
		b.Y = y
	case ControlTopRight:
		b.Width = x - b.X
		b.Height += s.Bounds.Y - y
		b.Y = y
	case ControlMiddleLeft:
		b.Width += s.Bounds.X - x
		b.X = x
	case ControlMiddleRight:
		b.Width = x - b.X
	case ControlBottomLeft:
		b.Width += s.Bounds.X - x
		b.Height = y - b.Y
		b.X = x
	case ControlBottomMiddle:
		b.Height = y - b.Y
	case ControlBottomRight:
		b.Width = x - b.X
		b.Height = y - b.Y
	}
	s.Bounds = b
	s.resetControlPoints()
}

// ControlAt returns the index of the control point containing (x, y),
// or NoControl.
func (s Shape) ControlAt(x, y float64) int {
	for i, c := range s.ControlPoints {
		if c.Contains(x, y) {
			return i
		}
	}
	return NoControl
}

// Hit reports whether (x, y) selects this shape: geometric containment for
// rectangular kinds, proximity to the segment for lines.
func (s Shape) Hit(x, y float64) bool {
	switch s.Kind {
	case KindLine:
		return segmentDistance(s.Start, s.End, x, y) <= lineHitTolerance
	case KindEllipse:
		// Point-in-ellipse, not point-in-bounding-box.
		if s.Bounds.Width <= 0 || s.Bounds.Height <= 0 {
			return false
		}
		rx := s.Bounds.Width / 2
		ry := s.Bounds.Height / 2
		nx := (x - (s.Bounds.X + rx)) / rx
		ny := (y - (s.Bounds.Y + ry)) / ry
		return nx*nx+ny*ny <= 1
	default:
		return s.Bounds.Contains(x, y)
	}
}

// Equal is the value-identity contract used to resolve remote references.
// Lines compare by endpoint pair alone; every other kind compares geometry,
// colors, label and control points. The transient selection fields are
// deliberately excluded so that equality cannot depend on who last selected
// the shape.
func (s Shape) Equal(o Shape) bool {
	if s.Kind == KindLine || o.Kind == KindLine {
		if s.Kind != o.Kind {
			return false
		}
		return s.Start == o.Start && s.End == o.End
	}

	return s.Kind == o.Kind &&
		s.Bounds == o.Bounds &&
		s.BorderColor == o.BorderColor &&
		colorPtrEqual(s.FillColor, o.FillColor) &&
		s.Label == o.Label &&
		s.LabelColor == o.LabelColor &&
		slices.Equal(s.ControlPoints, o.ControlPoints)
}

func colorPtrEqual(a, b *Color) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
