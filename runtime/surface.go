package runtime

import (
	"sync"

	"board-lab/domain"
)

// Mode is the interaction mode of the host's own surface. Raw press/drag
// events are interpreted against a mode: the same drag selects-and-moves a
// shape, lays down strokes, erases, or drags a label.
type Mode string

const (
	ModeShape Mode = "shape"
	ModeDraw  Mode = "draw"
	ModeErase Mode = "erase"
	ModeText  Mode = "text"
)

// Surface is the host's interactive surface, minus the pixels: the current
// mode, the in-flight gesture state, and the press/drag/release handling
// that turns raw pointer events into board mutations.
//
// Remote participants delegate their raw events here too, scoped through
// WithMode so the host's own mode survives. Two delegated gestures arriving
// at once share this single gesture state; that re-entrancy hazard is
// inherited from the consistency model, not fixed here.
type Surface struct {
	mu    sync.Mutex
	board *domain.Board

	mode     Mode
	measurer domain.TextMeasurer

	dragging       bool
	startX, startY float64

	target        domain.Shape
	hasTarget     bool
	targetControl int

	textTarget    domain.Label
	hasTextTarget bool

	drawColor   domain.Color
	strokeWidth float64
	eraserSize  float64
}

func NewSurface(board *domain.Board, measurer domain.TextMeasurer) *Surface {
	return &Surface{
		board:         board,
		mode:          ModeShape,
		measurer:      measurer,
		targetControl: domain.NoControl,
		drawColor:     domain.Black,
		strokeWidth:   1,
		eraserSize:    20,
	}
}

func (s *Surface) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Surface) SetMode(m Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

func (s *Surface) SetDrawColor(c domain.Color) {
	s.mu.Lock()
	s.drawColor = c
	s.mu.Unlock()
}

func (s *Surface) SetEraserSize(size float64) {
	s.mu.Lock()
	s.eraserSize = size
	s.mu.Unlock()
}

// WithMode temporarily adopts the requested mode, runs the action, then
// restores whatever mode the host was in. This is how a remote "shape" drag
// is applied without permanently clobbering a host that is busy erasing.
// The swap is scoped, not atomic with fn.
func (s *Surface) WithMode(m Mode, fn func()) {
	s.mu.Lock()
	prev := s.mode
	s.mode = m
	s.mu.Unlock()

	fn()

	s.mu.Lock()
	s.mode = prev
	s.mu.Unlock()
}

// Press starts a gesture at (x, y) under the current mode.
func (s *Surface) Press(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case ModeShape:
		s.pressShape(x, y)
	case ModeDraw:
		s.startX, s.startY = x, y
		s.dragging = true
	case ModeText:
		s.pressText(x, y)
	case ModeErase:
		s.dragging = true
	}
}

// Drag continues the gesture at (x, y).
func (s *Surface) Drag(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dragging {
		return
	}

	switch s.mode {
	case ModeShape:
		s.dragShape(x, y)
	case ModeDraw:
		s.board.AddStroke(domain.Stroke{
			Start: domain.Point{X: s.startX, Y: s.startY},
			End:   domain.Point{X: x, Y: y},
			Color: s.drawColor,
			Width: s.strokeWidth,
		})
		s.startX, s.startY = x, y
	case ModeText:
		s.dragText(x, y)
	case ModeErase:
		s.board.EraseStrokes(domain.Circle{
			Center: domain.Point{X: x, Y: y},
			Radius: s.eraserSize / 2,
		})
	}
}

// Release ends the gesture.
func (s *Surface) Release() {
	s.mu.Lock()
	s.dragging = false
	s.mu.Unlock()
}

func (s *Surface) pressShape(x, y float64) {
	// A press on one of the current target's handles starts a resize.
	if s.hasTarget {
		s.targetControl = s.target.ControlAt(x, y)
		if s.targetControl != domain.NoControl {
			s.dragging = true
			s.startX, s.startY = x, y
			return
		}
	}

	// Otherwise re-run selection; a hit starts a move.
	s.target, s.hasTarget = s.board.SetShapeSelected(x, y)
	s.targetControl = domain.NoControl
	s.startX, s.startY = x, y
	s.dragging = s.hasTarget
}

func (s *Surface) dragShape(x, y float64) {
	if s.hasTarget && s.targetControl != domain.NoControl {
		if err := s.board.ResizeShape(s.target, s.targetControl, x, y); err != nil {
			// Deleted under us mid-gesture; the delete wins.
			s.hasTarget = false
			s.dragging = false
			return
		}
		// Keep the local reference equal to the canonical, resized value.
		s.target.Adjust(s.targetControl, x, y)
		return
	}

	dx, dy := x-s.startX, y-s.startY
	s.board.MoveSelectedShapes(dx, dy)
	if s.hasTarget {
		s.target.MoveBy(dx, dy)
	}
	s.startX, s.startY = x, y
}

func (s *Surface) pressText(x, y float64) {
	// Labels are only hittable once measured; run the draw-pass equivalent
	// first so a label added moments ago gets a box.
	s.board.MeasureLabels(s.measurer)
	s.textTarget, s.hasTextTarget = s.board.HitLabel(x, y)
	s.startX, s.startY = x, y
	s.dragging = s.hasTextTarget
}

func (s *Surface) dragText(x, y float64) {
	if !s.hasTextTarget {
		return
	}
	dx, dy := x-s.startX, y-s.startY
	if err := s.board.MoveLabel(s.textTarget, dx, dy); err != nil {
		s.hasTextTarget = false
		s.dragging = false
		return
	}
	s.textTarget.MoveBy(dx, dy)
	s.startX, s.startY = x, y
}
