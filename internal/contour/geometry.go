package contour

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// LineString returns the contour as an orb line string.
func (c *Contour) LineString() orb.LineString {
	ls := make(orb.LineString, len(c.points))
	for i, p := range c.points {
		ls[i] = orb.Point{p.X, p.Y}
	}
	return ls
}

// Length returns the total arc length of the contour.
func (c *Contour) Length() float64 {
	return planar.Length(c.LineString())
}

// Bound returns the axis-aligned bounding box.
func (c *Contour) Bound() orb.Bound {
	return c.LineString().Bound()
}

// Extent returns the diagonal of the bounding box.
func (c *Contour) Extent() float64 {
	b := c.Bound()
	return math.Hypot(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1])
}

// Distance returns the straight-line distance between the points at i and j.
func (c *Contour) Distance(i, j int) float64 {
	return c.points[i].Distance(c.points[j])
}

// ArcLength returns the path length along the contour between indices i and
// j. The order of the arguments does not matter.
func (c *Contour) ArcLength(i, j int) float64 {
	if i > j {
		i, j = j, i
	}
	total := 0.0
	for k := i + 1; k <= j; k++ {
		total += c.points[k-1].Distance(c.points[k])
	}
	return total
}

// Resample returns n points spaced evenly by arc length from index from to
// index to, both endpoints included.
func (c *Contour) Resample(from, to, n int) ([]Point, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil contour", ErrInvalidContour)
	}
	if from < 0 || to >= len(c.points) || from > to {
		return nil, fmt.Errorf("%w: segment [%d, %d] out of range for %d points",
			ErrInvalidContour, from, to, len(c.points))
	}
	if n < 2 {
		return nil, fmt.Errorf("resample segment: need at least 2 samples, got %d", n)
	}
	segment := c.points[from : to+1]
	total := c.ArcLength(from, to)
	if total <= 0 || math.IsNaN(total) {
		return nil, fmt.Errorf("%w: segment [%d, %d]", ErrDegenerateSegment, from, to)
	}
	return resample(segment, total, n), nil
}

// resample walks the polyline once, interpolating each target distance
// inside the edge that contains it.
func resample(segment []Point, total float64, n int) []Point {
	out := make([]Point, 0, n)
	out = append(out, segment[0])
	step := total / float64(n-1)

	edge := 0
	walked := 0.0
	edgeLen := segment[0].Distance(segment[1])
	for k := 1; k < n-1; k++ {
		target := step * float64(k)
		for walked+edgeLen < target && edge < len(segment)-2 {
			walked += edgeLen
			edge++
			edgeLen = segment[edge].Distance(segment[edge+1])
		}
		t := 0.0
		if edgeLen > 0 {
			t = (target - walked) / edgeLen
		}
		t = math.Max(0, math.Min(1, t))
		a, b := segment[edge], segment[edge+1]
		out = append(out, Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)})
	}
	return append(out, segment[len(segment)-1])
}

// Transform returns a new contour with every point mapped to p*scale + (dx, dy).
func (c *Contour) Transform(scale, dx, dy float64) (*Contour, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil contour", ErrInvalidContour)
	}
	points := make([]Point, len(c.points))
	for i, p := range c.points {
		points[i] = Point{X: p.X*scale + dx, Y: p.Y*scale + dy}
	}
	return New(points, c.features)
}
