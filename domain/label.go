package domain

// Label is a free-standing text item anchored at (X, Y). Width and Height
// are measured, not declared: they stay zero until a rendering pass has run
// a TextMeasurer over the label, and a zero box contains no point. A freshly
// added label therefore cannot be hit-tested until it has been drawn once.
type Label struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Color  Color   `json:"color"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewLabel creates an unmeasured label.
func NewLabel(text string, x, y float64, color Color) Label {
	return Label{Text: text, X: x, Y: y, Color: color}
}

// Contains reports whether (x, y) falls inside the last-measured bounding
// box, centered on the anchor. The comparisons are strict, so an unmeasured
// label (zero box) contains nothing.
func (l Label) Contains(x, y float64) bool {
	return x > l.X-l.Width/2 && x < l.X+l.Width/2 &&
		y > l.Y-l.Height/2 && y < l.Y+l.Height/2
}

// MoveBy translates the anchor.
func (l *Label) MoveBy(dx, dy float64) {
	l.X += dx
	l.Y += dy
}

// Labels are plain comparable values; == is the value-identity contract,
// measured box included.
