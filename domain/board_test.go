package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"board-lab/errors"
)

func TestBoard_ShapeLifecycle(t *testing.T) {
	req := require.New(t)
	board := NewBoard()

	shape := board.AddShape(KindRectangle)
	req.Len(board.Snapshot().Shapes, 1)

	req.NoError(board.MoveShape(shape, 10, 20))
	shape.MoveBy(10, 20)
	req.NoError(board.SetShapeLabel(shape, "box"))
	shape.Label = "box"
	req.NoError(board.SetShapeBorderColor(shape, Red))
	shape.BorderColor = Red

	got := board.Snapshot().Shapes[0]
	req.True(got.Equal(shape))
	req.Equal(Rect{X: 60, Y: 70, Width: 50, Height: 50}, got.Bounds)
	req.Equal("box", got.Label)
	req.Equal(Red, got.BorderColor)
}

func TestBoard_StaleReference(t *testing.T) {
	req := require.New(t)
	board := NewBoard()
	shape := board.AddShape(KindEllipse)

	req.NoError(board.MoveShape(shape, 5, 5))

	// The original value no longer matches anything
	req.ErrorIs(board.MoveShape(shape, 5, 5), errors.ErrNotFound)
	req.ErrorIs(board.SetShapeLabel(shape, "x"), errors.ErrNotFound)
	req.ErrorIs(board.ResizeShape(shape, ControlTopLeft, 0, 0), errors.ErrNotFound)
}

func TestBoard_DeleteShape_Idempotent(t *testing.T) {
	req := require.New(t)
	board := NewBoard()
	shape := board.AddShape(KindLine)

	board.DeleteShape(shape)
	req.Empty(board.Snapshot().Shapes)

	// Deleting again is a silent no-op
	board.DeleteShape(shape)
	req.Empty(board.Snapshot().Shapes)
}

func TestBoard_SetShapeSelected(t *testing.T) {
	req := require.New(t)
	board := NewBoard()
	board.AddShape(KindRectangle) // (50,50,50,50)
	board.AddShape(KindEllipse)   // (50,200,50,50)

	hit, ok := board.SetShapeSelected(75, 75)
	req.True(ok)
	req.Equal(KindRectangle, hit.Kind)

	shapes := board.Snapshot().Shapes
	req.True(shapes[0].Selected)
	req.False(shapes[1].Selected)

	// A miss clears every selection
	_, ok = board.SetShapeSelected(500, 500)
	req.False(ok)
	for _, shape := range board.Snapshot().Shapes {
		req.False(shape.Selected)
	}
}

func TestBoard_MoveSelectedShapes(t *testing.T) {
	req := require.New(t)
	board := NewBoard()
	board.AddShape(KindRectangle)
	board.AddShape(KindEllipse)
	board.SetShapeSelected(75, 75)

	board.MoveSelectedShapes(10, 10)

	shapes := board.Snapshot().Shapes
	req.Equal(Rect{X: 60, Y: 60, Width: 50, Height: 50}, shapes[0].Bounds)
	req.Equal(Rect{X: 50, Y: 200, Width: 50, Height: 50}, shapes[1].Bounds)
}

func TestBoard_EraseStrokes(t *testing.T) {
	req := require.New(t)
	board := NewBoard()
	board.AddStroke(Stroke{Start: Point{X: 5, Y: 5}, End: Point{X: 100, Y: 100}, Color: Black, Width: 1})
	board.AddStroke(Stroke{Start: Point{X: 300, Y: 300}, End: Point{X: 310, Y: 310}, Color: Black, Width: 1})

	// An eraser near one endpoint removes the whole stroke
	removed := board.EraseStrokes(Circle{Center: Point{X: 5, Y: 5}, Radius: 10})
	req.Equal(1, removed)
	req.Len(board.Snapshot().Strokes, 1)

	// An eraser near the middle of a stroke misses both endpoints
	removed = board.EraseStrokes(Circle{Center: Point{X: 200, Y: 200}, Radius: 10})
	req.Zero(removed)
	req.Len(board.Snapshot().Strokes, 1)
}

func TestBoard_LabelLifecycle(t *testing.T) {
	req := require.New(t)
	board := NewBoard()
	label := NewLabel("note", 100, 100, Black)
	board.AddLabel(label)

	// Unmeasured labels are invisible to hit tests
	_, ok := board.HitLabel(100, 100)
	req.False(ok)

	board.MeasureLabels(fixedMeasurer{width: 40, height: 16})
	measured, ok := board.HitLabel(100, 100)
	req.True(ok)
	req.Equal(40.0, measured.Width)

	req.NoError(board.MoveLabel(measured, 10, 0))
	measured.MoveBy(10, 0)
	req.NoError(board.SetLabelColor(measured, Red))

	// Changing the text resets the measured box
	measured.Color = Red
	req.NoError(board.SetLabelText(measured, "longer note"))
	got := board.Snapshot().Labels[0]
	req.Equal("longer note", got.Text)
	req.Zero(got.Width)
	req.Zero(got.Height)

	board.DeleteLabel(got)
	req.Empty(board.Snapshot().Labels)
	board.DeleteLabel(got)
	req.Empty(board.Snapshot().Labels)
}

func TestBoard_ReplaceAndClear(t *testing.T) {
	req := require.New(t)
	board := NewBoard()
	board.AddShape(KindRectangle)
	board.AddStroke(Stroke{Start: Point{X: 1, Y: 1}, End: Point{X: 2, Y: 2}, Color: Black, Width: 1})
	board.AddLabel(NewLabel("a", 1, 1, Black))
	saved := board.Snapshot()

	board.Clear()
	snap := board.Snapshot()
	req.Empty(snap.Shapes)
	req.Empty(snap.Strokes)
	req.Empty(snap.Labels)

	board.Replace(saved)
	req.Equal(saved, board.Snapshot())
}

func TestBoard_SnapshotIsACopy(t *testing.T) {
	req := require.New(t)
	board := NewBoard()
	board.AddShape(KindRectangle)

	snap := board.Snapshot()
	snap.Shapes[0].Bounds.X = 999

	req.Equal(50.0, board.Snapshot().Shapes[0].Bounds.X)
}

type fixedMeasurer struct {
	width, height float64
}

func (m fixedMeasurer) MeasureText(text string) (float64, float64) {
	return m.width, m.height
}
