package testsupport

import (
	"math"
	"math/rand"
	"testing"

	"finmatch/internal/catalog"
	"finmatch/internal/contour"
	"finmatch/internal/tracefile"
)

// Triangle builds the three-point outline (0,0), (5,peak), (10,0) with the
// tip on the middle point.
func Triangle(t testing.TB, peak float64) *contour.Contour {
	t.Helper()
	return mustContour(t,
		[]contour.Point{{X: 0, Y: 0}, {X: 5, Y: peak}, {X: 10, Y: 0}},
		contour.Features{BeginLE: 0, Tip: 1, EndLE: 1, Notch: 1, EndTE: 2},
	)
}

// Fin builds a 40-point fin-like outline. The leading edge rises from the
// origin to a tip of the given height at x=10 and the trailing edge falls
// back through a shallow notch. The same shape value always yields the same
// outline.
func Fin(t testing.TB, height, shape float64) *contour.Contour {
	t.Helper()
	points := make([]contour.Point, 0, 40)
	for i := range 21 {
		f := float64(i) / 20
		points = append(points, contour.Point{
			X: 10 * f,
			Y: height * math.Sin(f*math.Pi/2) * (1 + shape*math.Sin(f*math.Pi)),
		})
	}
	for i := 1; i < 19; i++ {
		f := float64(i) / 19
		dip := 0.0
		if i >= 8 && i <= 12 {
			dip = shape * 0.8
		}
		points = append(points, contour.Point{
			X: 10 + 6*f - dip,
			Y: height * (1 - f),
		})
	}
	points = append(points, contour.Point{X: 16.5, Y: 0})
	return mustContour(t, points, contour.Features{BeginLE: 0, Tip: 20, EndLE: 25, Notch: 30, EndTE: len(points) - 1})
}

// Jitter returns c with every point displaced by up to amount in each axis,
// drawn from a generator seeded with seed.
func Jitter(t testing.TB, c *contour.Contour, amount float64, seed int64) *contour.Contour {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	points := c.Points()
	for i := range points {
		points[i].X += (rng.Float64()*2 - 1) * amount
		points[i].Y += (rng.Float64()*2 - 1) * amount
	}
	features, err := c.Features()
	if err != nil {
		t.Fatalf("features: %v", err)
	}
	return mustContour(t, points, features)
}

// Entry wraps a contour as a catalog entry.
func Entry(id, category string, c *contour.Contour) catalog.Entry {
	return catalog.Entry{
		IndividualID:   id,
		Name:           id,
		DamageCategory: category,
		ImageFilename:  id + ".jpg",
		Contour:        c,
	}
}

// WriteTrace saves entries as a YAML trace file at path.
func WriteTrace(t testing.TB, path string, entries ...catalog.Entry) {
	t.Helper()
	files := make([]tracefile.File, 0, len(entries))
	for _, e := range entries {
		f, err := tracefile.FromEntry(e)
		if err != nil {
			t.Fatalf("trace %s: %v", e.IndividualID, err)
		}
		files = append(files, f)
	}
	if err := tracefile.Save(path, files...); err != nil {
		t.Fatalf("save trace %s: %v", path, err)
	}
}

func mustContour(t testing.TB, points []contour.Point, features contour.Features) *contour.Contour {
	t.Helper()
	c, err := contour.New(points, features)
	if err != nil {
		t.Fatalf("contour.New: %v", err)
	}
	return c
}
