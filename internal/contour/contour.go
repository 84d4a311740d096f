package contour

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidContour reports a contour that violates the point or landmark invariants.
	ErrInvalidContour = errors.New("invalid contour")
	// ErrDegenerateSegment reports a landmark-delimited segment with no arc length.
	ErrDegenerateSegment = errors.New("degenerate contour segment")
)

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

func (p Point) finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Landmark names one of the five feature indices of a contour.
type Landmark int

const (
	BeginLE Landmark = iota
	Tip
	EndLE
	Notch
	EndTE
)

var landmarkNames = [...]string{"begin_le", "tip", "end_le", "notch", "end_te"}

func (l Landmark) String() string {
	if l < BeginLE || l > EndTE {
		return fmt.Sprintf("landmark(%d)", int(l))
	}
	return landmarkNames[l]
}

// ParseLandmark converts a configuration value such as "tip" into a Landmark.
func ParseLandmark(value string) (Landmark, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for i, name := range landmarkNames {
		if name == normalized {
			return Landmark(i), nil
		}
	}
	return 0, fmt.Errorf("unknown landmark %q", value)
}

// Features holds the landmark indices into a contour's point sequence.
type Features struct {
	BeginLE int `json:"begin_le" yaml:"begin_le"`
	Tip     int `json:"tip" yaml:"tip"`
	EndLE   int `json:"end_le" yaml:"end_le"`
	Notch   int `json:"notch" yaml:"notch"`
	EndTE   int `json:"end_te" yaml:"end_te"`
}

// Index returns the point index recorded for the landmark.
func (f Features) Index(l Landmark) int {
	switch l {
	case BeginLE:
		return f.BeginLE
	case Tip:
		return f.Tip
	case EndLE:
		return f.EndLE
	case Notch:
		return f.Notch
	case EndTE:
		return f.EndTE
	}
	return -1
}

func (f Features) slice() []int {
	return []int{f.BeginLE, f.Tip, f.EndLE, f.Notch, f.EndTE}
}

// Validate checks 0 <= BeginLE <= Tip <= EndLE <= Notch <= EndTE < n.
func (f Features) Validate(n int) error {
	indices := f.slice()
	if indices[0] < 0 {
		return fmt.Errorf("%w: %s index %d is negative", ErrInvalidContour, BeginLE, indices[0])
	}
	for i := 1; i < len(indices); i++ {
		if indices[i] < indices[i-1] {
			return fmt.Errorf("%w: %s index %d precedes %s index %d",
				ErrInvalidContour, Landmark(i), indices[i], Landmark(i-1), indices[i-1])
		}
	}
	if last := indices[len(indices)-1]; last >= n {
		return fmt.Errorf("%w: %s index %d out of range for %d points", ErrInvalidContour, EndTE, last, n)
	}
	return nil
}

// Contour is an immutable traced outline with validated landmarks.
type Contour struct {
	points   []Point
	features Features
}

// New validates the points and landmarks and returns a Contour that owns a
// copy of points.
func New(points []Point, features Features) (*Contour, error) {
	if err := validatePoints(points); err != nil {
		return nil, err
	}
	if err := features.Validate(len(points)); err != nil {
		return nil, err
	}
	owned := make([]Point, len(points))
	copy(owned, points)
	return &Contour{points: owned, features: features}, nil
}

func validatePoints(points []Point) error {
	if len(points) < 2 {
		return fmt.Errorf("%w: %d points, need at least 2", ErrInvalidContour, len(points))
	}
	for i, p := range points {
		if !p.finite() {
			return fmt.Errorf("%w: point %d is not finite", ErrInvalidContour, i)
		}
		if i > 0 && p == points[i-1] {
			return fmt.Errorf("%w: points %d and %d are identical", ErrInvalidContour, i-1, i)
		}
	}
	return nil
}

// Len returns the number of points.
func (c *Contour) Len() int {
	if c == nil {
		return 0
	}
	return len(c.points)
}

// Points returns a copy of the point sequence.
func (c *Contour) Points() []Point {
	if c == nil {
		return nil
	}
	out := make([]Point, len(c.points))
	copy(out, c.points)
	return out
}

// Point returns the point at index i.
func (c *Contour) Point(i int) Point {
	return c.points[i]
}

// Features returns the landmark indices, failing with ErrInvalidContour when
// the contour is nil or its landmarks do not satisfy the ordering invariant.
func (c *Contour) Features() (Features, error) {
	if c == nil {
		return Features{}, fmt.Errorf("%w: nil contour", ErrInvalidContour)
	}
	if err := validatePoints(c.points); err != nil {
		return Features{}, err
	}
	if err := c.features.Validate(len(c.points)); err != nil {
		return Features{}, err
	}
	return c.features, nil
}

// Landmark returns the point recorded for the landmark.
func (c *Contour) Landmark(l Landmark) Point {
	return c.points[c.features.Index(l)]
}

// Validate re-checks every invariant. It exists for callers that receive
// contours from outside the package and want to fail fast.
func (c *Contour) Validate() error {
	_, err := c.Features()
	return err
}
