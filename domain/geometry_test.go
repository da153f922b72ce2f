package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRect_Contains(t *testing.T) {
	req := require.New(t)
	r := Rect{X: 10, Y: 10, Width: 20, Height: 20}

	req.True(r.Contains(10, 10))
	req.True(r.Contains(30, 30))
	req.True(r.Contains(20, 20))
	req.False(r.Contains(9, 20))
	req.False(r.Contains(20, 31))
}

func TestCircle_Contains(t *testing.T) {
	req := require.New(t)
	c := Circle{Center: Point{X: 0, Y: 0}, Radius: 5}

	req.True(c.Contains(Point{X: 3, Y: 4}))
	req.True(c.Contains(Point{X: 5, Y: 0}))
	req.False(c.Contains(Point{X: 4, Y: 4}))
}

func TestSegmentDistance(t *testing.T) {
	req := require.New(t)
	a := Point{X: 0, Y: 0}
	b := Point{X: 10, Y: 0}

	req.Zero(segmentDistance(a, b, 5, 0))
	req.Equal(3.0, segmentDistance(a, b, 5, 3))
	// Beyond the endpoints the distance is to the endpoint, not the line
	req.Equal(5.0, segmentDistance(a, b, 13, 4))

	// Degenerate segment behaves as a point
	req.Equal(5.0, segmentDistance(a, a, 3, 4))
}
