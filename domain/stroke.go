package domain

// Stroke is one freehand segment. A drag produces a chain of strokes; each
// stroke is immutable once added and only ever removed whole.
type Stroke struct {
	Start Point   `json:"start"`
	End   Point   `json:"end"`
	Color Color   `json:"color"`
	Width float64 `json:"width"`
}

// WithinEraser reports whether the eraser region catches this stroke. The
// test is point-in-circle on the endpoints, not segment-circle intersection:
// a stroke crossing the eraser without an endpoint inside survives.
func (s Stroke) WithinEraser(eraser Circle) bool {
	return eraser.Contains(s.Start) || eraser.Contains(s.End)
}
