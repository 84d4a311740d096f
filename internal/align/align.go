package align

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"finmatch/internal/contour"
	"finmatch/internal/normalize"
)

// ErrAlignment reports input the aligner cannot interpret.
var ErrAlignment = errors.New("alignment failed")

const (
	DefaultSamples = 100
	DefaultPenalty = 1e6
)

// Correspondence pairs a point on the unknown contour with the database point
// it was aligned to, both in the canonical frame.
type Correspondence struct {
	Unknown  contour.Point
	Database contour.Point
}

// Alignment is the outcome of aligning one pair.
type Alignment struct {
	Distance  float64
	Path      []Correspondence
	Penalized bool
}

// Aligner holds the resampling and scoring parameters. The zero value is not
// usable; build one with New.
type Aligner struct {
	samples int
	band    int
	cost    CostFunc
	penalty float64

	registration Registration
	trim         float64
}

// Option configures an Aligner.
type Option func(*Aligner)

// WithSamples sets the number of points each edge is resampled to.
func WithSamples(n int) Option {
	return func(a *Aligner) {
		if n >= 2 {
			a.samples = n
		}
	}
}

// WithBand restricts correspondences to |i-j| <= band. Zero disables the band.
func WithBand(band int) Option {
	return func(a *Aligner) {
		if band >= 0 {
			a.band = band
		}
	}
}

// WithCost sets the local cost function.
func WithCost(cost CostFunc) Option {
	return func(a *Aligner) {
		if cost != nil {
			a.cost = cost
		}
	}
}

// WithPenalty sets the distance reported for degenerate pairs.
func WithPenalty(p float64) Option {
	return func(a *Aligner) {
		if p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p) {
			a.penalty = p
		}
	}
}

// WithRegistration sets how leading-edge starts are registered. trim is the
// fraction of each leading edge a trimmed path may skip; values outside (0, 1)
// keep DefaultTrimFraction.
func WithRegistration(r Registration, trim float64) Option {
	return func(a *Aligner) {
		if r == RegistrationFixed || r == RegistrationTrimLeading {
			a.registration = r
		}
		if trim > 0 && trim < 1 {
			a.trim = trim
		}
	}
}

// New returns an Aligner using Euclidean cost, 100 samples per edge and no band.
func New(opts ...Option) *Aligner {
	a := &Aligner{
		samples: DefaultSamples,
		cost:    Euclidean,
		penalty: DefaultPenalty,

		registration: RegistrationFixed,
		trim:         DefaultTrimFraction,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registration returns the configured registration.
func (a *Aligner) Registration() Registration {
	return a.registration
}

// Penalty returns the worst-case distance assigned to degenerate pairs.
func (a *Aligner) Penalty() float64 {
	return a.penalty
}

// Distance aligns the pair and returns only the distance. Any failure is
// reported as the penalty.
func (a *Aligner) Distance(pair normalize.Pair) float64 {
	result, err := a.Align(pair)
	if err != nil {
		return a.penalty
	}
	return result.Distance
}

// Align computes the distance and correspondence path for a normalized pair.
func (a *Aligner) Align(pair normalize.Pair) (Alignment, error) {
	if pair.Unknown == nil || pair.Database == nil {
		return Alignment{}, fmt.Errorf("%w: pair is missing a contour", ErrAlignment)
	}
	uf, err := pair.Unknown.Features()
	if err != nil {
		return Alignment{}, fmt.Errorf("%w: unknown contour: %w", ErrAlignment, err)
	}
	df, err := pair.Database.Features()
	if err != nil {
		return Alignment{}, fmt.Errorf("%w: database contour: %w", ErrAlignment, err)
	}

	edges := [][4]int{
		{uf.BeginLE, uf.Tip, df.BeginLE, df.Tip},
		{uf.Tip, uf.EndTE, df.Tip, df.EndTE},
	}
	totals := make([]float64, 0, len(edges))
	steps := 0
	var path []Correspondence
	for k, e := range edges {
		us, err := pair.Unknown.Resample(e[0], e[1], a.samples)
		if err != nil {
			return a.degenerate(err)
		}
		ds, err := pair.Database.Resample(e[2], e[3], a.samples)
		if err != nil {
			return a.degenerate(err)
		}
		free := 0
		if k == 0 {
			free = a.freeStart()
		}
		total, edgePath := a.alignEdge(samples(us), samples(ds), free)
		if len(edgePath) == 0 {
			// Both edges carry the same sample count, so the diagonal is always
			// inside the band and only an overflowing cost lands here.
			return a.penalized(), nil
		}
		totals = append(totals, total)
		steps += len(edgePath)
		path = append(path, edgePath...)
	}

	distance := floats.Sum(totals) / float64(steps)
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		return a.penalized(), nil
	}
	return Alignment{Distance: distance, Path: path}, nil
}

func (a *Aligner) degenerate(err error) (Alignment, error) {
	if errors.Is(err, contour.ErrDegenerateSegment) {
		return a.penalized(), nil
	}
	return Alignment{}, fmt.Errorf("%w: %w", ErrAlignment, err)
}

func (a *Aligner) penalized() Alignment {
	return Alignment{Distance: a.penalty, Penalized: true}
}

func (a *Aligner) inBand(i, j int) bool {
	if a.band == 0 {
		return true
	}
	d := i - j
	if d < 0 {
		d = -d
	}
	return d <= a.band
}

// alignEdge fills the cumulative cost table and backtraces the cheapest
// monotonic path from the last cell to its start. The first free+1 cells of
// row 0 and of column 0 may each open a path.
func (a *Aligner) alignEdge(u, d []Sample, free int) (float64, []Correspondence) {
	n, m := len(u), len(d)
	table := mat.NewDense(n, m, nil)
	inf := math.Inf(1)
	for i := range n {
		for j := range m {
			if !a.inBand(i, j) {
				table.Set(i, j, inf)
				continue
			}
			local := a.cost(u[i], d[j])
			if isStart(i, j, free) {
				table.Set(i, j, local)
				continue
			}
			best := inf
			if i > 0 {
				best = math.Min(best, table.At(i-1, j))
			}
			if j > 0 {
				best = math.Min(best, table.At(i, j-1))
			}
			if i > 0 && j > 0 {
				best = math.Min(best, table.At(i-1, j-1))
			}
			table.Set(i, j, local+best)
		}
	}

	total := table.At(n-1, m-1)
	if math.IsInf(total, 1) {
		return total, nil
	}

	path := make([]Correspondence, 0, n+m)
	i, j := n-1, m-1
	for {
		path = append(path, Correspondence{Unknown: u[i].Point, Database: d[j].Point})
		if isStart(i, j, free) {
			break
		}
		switch {
		case i == 0:
			j--
		case j == 0:
			i--
		default:
			diag, up, left := table.At(i-1, j-1), table.At(i-1, j), table.At(i, j-1)
			switch {
			case diag <= up && diag <= left:
				i, j = i-1, j-1
			case up <= left:
				i--
			default:
				j--
			}
		}
	}
	slices.Reverse(path)
	return total, path
}

func isStart(i, j, free int) bool {
	return (i == 0 && j <= free) || (j == 0 && i <= free)
}
