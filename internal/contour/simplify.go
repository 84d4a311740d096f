package contour

import (
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Collapse drops consecutive duplicate points and remaps the landmark indices
// onto the surviving points. Landmarks that pointed at a dropped duplicate move
// to the point it duplicated. Indices outside the input are returned as-is so
// that New still reports them.
func Collapse(points []Point, features Features) ([]Point, Features) {
	if len(points) == 0 {
		return nil, features
	}
	kept := make([]Point, 0, len(points))
	remap := make([]int, len(points))
	for i, p := range points {
		if i > 0 && p == points[i-1] {
			remap[i] = len(kept) - 1
			continue
		}
		kept = append(kept, p)
		remap[i] = len(kept) - 1
	}
	move := func(idx int) int {
		if idx < 0 || idx >= len(remap) {
			return idx
		}
		return remap[idx]
	}
	return kept, Features{
		BeginLE: move(features.BeginLE),
		Tip:     move(features.Tip),
		EndLE:   move(features.EndLE),
		Notch:   move(features.Notch),
		EndTE:   move(features.EndTE),
	}
}

// Simplify reduces the point count with Douglas-Peucker, run separately on
// each stretch between landmarks so that landmarks and the contour endpoints
// survive. A tolerance <= 0 returns c unchanged.
func (c *Contour) Simplify(tolerance float64) (*Contour, error) {
	if tolerance <= 0 || c.Len() < 3 {
		return c, nil
	}
	breaks := append([]int{0, len(c.points) - 1}, c.features.slice()...)
	slices.Sort(breaks)
	breaks = slices.Compact(breaks)

	newIndex := make(map[int]int, len(breaks))
	out := make([]Point, 0, len(c.points))
	simplifier := simplify.DouglasPeucker(tolerance)
	for k := 0; k < len(breaks)-1; k++ {
		from, to := breaks[k], breaks[k+1]
		newIndex[from] = len(out)
		run := make(orb.LineString, 0, to-from+1)
		for _, p := range c.points[from : to+1] {
			run = append(run, orb.Point{p.X, p.Y})
		}
		reduced, ok := simplifier.Simplify(run).(orb.LineString)
		if !ok || len(reduced) < 2 {
			reduced = orb.LineString{run[0], run[len(run)-1]}
		}
		for _, p := range reduced[:len(reduced)-1] {
			out = append(out, Point{X: p[0], Y: p[1]})
		}
	}
	last := breaks[len(breaks)-1]
	newIndex[last] = len(out)
	out = append(out, c.points[last])

	f := c.features
	return New(out, Features{
		BeginLE: newIndex[f.BeginLE],
		Tip:     newIndex[f.Tip],
		EndLE:   newIndex[f.EndLE],
		Notch:   newIndex[f.Notch],
		EndTE:   newIndex[f.EndTE],
	})
}
