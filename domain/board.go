package domain

import (
	"sync"

	"board-lab/errors"
)

// TextMeasurer computes the rendered box of a label's text. It is satisfied
// by the rendering collaborator; the board itself never renders.
type TextMeasurer interface {
	MeasureText(text string) (width, height float64)
}

// Snapshot is a full copy of the three document collections, taken together
// but without atomicity across them: a mutation racing the snapshot may land
// in one collection and not another.
type Snapshot struct {
	Shapes  []Shape  `json:"shapes"`
	Strokes []Stroke `json:"strokes"`
	Labels  []Label  `json:"labels"`
}

// Board is the canonical document: shapes, strokes and labels, each guarded
// independently. All mutations are element-level; the collections are only
// replaced wholesale by Replace (load) or Clear (new board).
//
// Lookups resolve remote references by value equality. A lookup miss means
// the item was already removed by a concurrent request, which the element
// operations report as errors.ErrNotFound for the caller to swallow. There
// is deliberately no isolation between a caller's earlier hit-test and its
// later mutation; that window is part of the documented consistency model.
type Board struct {
	shapesMu sync.RWMutex
	shapes   []Shape

	strokesMu sync.RWMutex
	strokes   []Stroke

	labelsMu sync.RWMutex
	labels   []Label
}

func NewBoard() *Board {
	return &Board{}
}

// AddShape appends a default-styled shape of the given kind and returns it.
func (b *Board) AddShape(kind ShapeKind) Shape {
	s := NewShape(kind)
	b.shapesMu.Lock()
	b.shapes = append(b.shapes, s)
	b.shapesMu.Unlock()
	return s
}

// MoveShape translates the first value-equal match by (dx, dy).
func (b *Board) MoveShape(ref Shape, dx, dy float64) error {
	return b.updateShape(ref, func(s *Shape) {
		s.MoveBy(dx, dy)
	})
}

// ResizeShape recomputes the matched shape's geometry as if the given
// control point had been dragged to (x, y).
func (b *Board) ResizeShape(ref Shape, control int, x, y float64) error {
	return b.updateShape(ref, func(s *Shape) {
		s.Adjust(control, x, y)
	})
}

func (b *Board) SetShapeBorderColor(ref Shape, c Color) error {
	return b.updateShape(ref, func(s *Shape) { s.BorderColor = c })
}

func (b *Board) SetShapeFillColor(ref Shape, c Color) error {
	return b.updateShape(ref, func(s *Shape) { fill := c; s.FillColor = &fill })
}

func (b *Board) SetShapeLabelColor(ref Shape, c Color) error {
	return b.updateShape(ref, func(s *Shape) { s.LabelColor = c })
}

func (b *Board) SetShapeLabel(ref Shape, text string) error {
	return b.updateShape(ref, func(s *Shape) { s.Label = text })
}

// DeleteShape removes the first value-equal match. Deleting a shape that is
// already gone is a silent no-op.
func (b *Board) DeleteShape(ref Shape) {
	b.shapesMu.Lock()
	defer b.shapesMu.Unlock()
	for i := range b.shapes {
		if b.shapes[i].Equal(ref) {
			b.shapes = append(b.shapes[:i], b.shapes[i+1:]...)
			return
		}
	}
}

// SetShapeSelected flips the transient selection flag on every shape
// according to whether it hits (x, y), and returns the first hit.
func (b *Board) SetShapeSelected(x, y float64) (Shape, bool) {
	b.shapesMu.Lock()
	defer b.shapesMu.Unlock()

	var target Shape
	found := false
	for i := range b.shapes {
		b.shapes[i].Selected = b.shapes[i].Hit(x, y)
		if b.shapes[i].Selected && !found {
			target = b.shapes[i]
			found = true
		}
	}
	return target, found
}

// MoveSelectedShapes translates every currently selected shape. This backs
// the drag gesture, which moves whatever the preceding press selected.
func (b *Board) MoveSelectedShapes(dx, dy float64) {
	b.shapesMu.Lock()
	defer b.shapesMu.Unlock()
	for i := range b.shapes {
		if b.shapes[i].Selected {
			b.shapes[i].MoveBy(dx, dy)
		}
	}
}

// HitShape returns the first shape in insertion order containing (x, y).
// Shapes have no z-order beyond list order.
func (b *Board) HitShape(x, y float64) (Shape, bool) {
	b.shapesMu.RLock()
	defer b.shapesMu.RUnlock()
	for _, s := range b.shapes {
		if s.Hit(x, y) {
			return s, true
		}
	}
	return Shape{}, false
}

func (b *Board) updateShape(ref Shape, fn func(*Shape)) error {
	b.shapesMu.Lock()
	defer b.shapesMu.Unlock()
	for i := range b.shapes {
		if b.shapes[i].Equal(ref) {
			fn(&b.shapes[i])
			return nil
		}
	}
	return errors.ErrNotFound
}

// AddStroke appends one freehand segment.
func (b *Board) AddStroke(s Stroke) {
	b.strokesMu.Lock()
	b.strokes = append(b.strokes, s)
	b.strokesMu.Unlock()
}

// EraseStrokes removes every stroke with an endpoint inside the eraser
// region and returns how many were removed.
func (b *Board) EraseStrokes(eraser Circle) int {
	b.strokesMu.Lock()
	defer b.strokesMu.Unlock()

	kept := b.strokes[:0]
	removed := 0
	for _, s := range b.strokes {
		if s.WithinEraser(eraser) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	b.strokes = kept
	return removed
}

// AddLabel appends a label as-is, measured or not.
func (b *Board) AddLabel(l Label) {
	b.labelsMu.Lock()
	b.labels = append(b.labels, l)
	b.labelsMu.Unlock()
}

func (b *Board) SetLabelText(ref Label, text string) error {
	return b.updateLabel(ref, func(l *Label) { l.Text = text; l.Width = 0; l.Height = 0 })
}

func (b *Board) SetLabelColor(ref Label, c Color) error {
	return b.updateLabel(ref, func(l *Label) { l.Color = c })
}

func (b *Board) MoveLabel(ref Label, dx, dy float64) error {
	return b.updateLabel(ref, func(l *Label) { l.MoveBy(dx, dy) })
}

// DeleteLabel removes the first value-equal match; silent no-op when absent.
func (b *Board) DeleteLabel(ref Label) {
	b.labelsMu.Lock()
	defer b.labelsMu.Unlock()
	for i := range b.labels {
		if b.labels[i] == ref {
			b.labels = append(b.labels[:i], b.labels[i+1:]...)
			return
		}
	}
}

// HitLabel returns the first label whose measured box contains (x, y).
func (b *Board) HitLabel(x, y float64) (Label, bool) {
	b.labelsMu.RLock()
	defer b.labelsMu.RUnlock()
	for _, l := range b.labels {
		if l.Contains(x, y) {
			return l, true
		}
	}
	return Label{}, false
}

// MeasureLabels runs the rendering collaborator's measurer over every label,
// filling in the hit boxes. This is the headless equivalent of a draw pass.
func (b *Board) MeasureLabels(m TextMeasurer) {
	if m == nil {
		return
	}
	b.labelsMu.Lock()
	defer b.labelsMu.Unlock()
	for i := range b.labels {
		b.labels[i].Width, b.labels[i].Height = m.MeasureText(b.labels[i].Text)
	}
}

func (b *Board) updateLabel(ref Label, fn func(*Label)) error {
	b.labelsMu.Lock()
	defer b.labelsMu.Unlock()
	for i := range b.labels {
		if b.labels[i] == ref {
			fn(&b.labels[i])
			return nil
		}
	}
	return errors.ErrNotFound
}

// Snapshot copies all three collections. Element values are copied; the
// control-point slices inside shapes are shared, which is safe because
// geometry edits always allocate fresh ones.
func (b *Board) Snapshot() Snapshot {
	var snap Snapshot

	b.shapesMu.RLock()
	snap.Shapes = append([]Shape(nil), b.shapes...)
	b.shapesMu.RUnlock()

	b.strokesMu.RLock()
	snap.Strokes = append([]Stroke(nil), b.strokes...)
	b.strokesMu.RUnlock()

	b.labelsMu.RLock()
	snap.Labels = append([]Label(nil), b.labels...)
	b.labelsMu.RUnlock()

	return snap
}

// Replace swaps in a loaded document wholesale. Only the load and new-board
// operations may do this.
func (b *Board) Replace(snap Snapshot) {
	b.shapesMu.Lock()
	b.shapes = append([]Shape(nil), snap.Shapes...)
	b.shapesMu.Unlock()

	b.strokesMu.Lock()
	b.strokes = append([]Stroke(nil), snap.Strokes...)
	b.strokesMu.Unlock()

	b.labelsMu.Lock()
	b.labels = append([]Label(nil), snap.Labels...)
	b.labelsMu.Unlock()
}

// Clear empties the document for a new board.
func (b *Board) Clear() {
	b.Replace(Snapshot{})
}
