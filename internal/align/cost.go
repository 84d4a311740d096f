package align

import (
	"fmt"
	"math"
	"strings"

	"finmatch/internal/contour"
)

// Sample is one resampled contour point together with the turning angle of
// the outline at that point, in radians.
type Sample struct {
	Point contour.Point
	Turn  float64
}

// CostFunc scores how poorly two samples correspond. It must be symmetric and
// return 0 for identical samples.
type CostFunc func(p, q Sample) float64

// Euclidean scores a correspondence by the distance between the two points.
func Euclidean(p, q Sample) float64 {
	return p.Point.Distance(q.Point)
}

// CurvatureWeighted adds weight canonical units per radian of turning-angle
// difference to the Euclidean cost.
func CurvatureWeighted(weight float64) CostFunc {
	if weight <= 0 {
		return Euclidean
	}
	return func(p, q Sample) float64 {
		return Euclidean(p, q) + weight*angleDiff(p.Turn, q.Turn)
	}
}

// Cost function names accepted by CostByName.
const (
	CostEuclidean = "euclidean"
	CostCurvature = "curvature"
)

// CostByName resolves a configured cost function.
func CostByName(name string, curvatureWeight float64) (CostFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", CostEuclidean:
		return Euclidean, nil
	case CostCurvature:
		return CurvatureWeighted(curvatureWeight), nil
	default:
		return nil, fmt.Errorf("unknown cost function %q", name)
	}
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 2*math.Pi)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

// samples attaches turning angles to a resampled edge. Endpoints have no
// turning angle.
func samples(points []contour.Point) []Sample {
	out := make([]Sample, len(points))
	for i, p := range points {
		out[i].Point = p
		if i == 0 || i == len(points)-1 {
			continue
		}
		prev, next := points[i-1], points[i+1]
		ax, ay := p.X-prev.X, p.Y-prev.Y
		bx, by := next.X-p.X, next.Y-p.Y
		out[i].Turn = math.Atan2(ax*by-ay*bx, ax*bx+ay*by)
	}
	return out
}
