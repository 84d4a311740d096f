package match

import (
	"errors"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"finmatch/internal/align"
	"finmatch/internal/contour"
	"finmatch/internal/normalize"
	"finmatch/internal/textutil"
)

// Result is one catalog entry's comparison outcome.
type Result struct {
	IndividualID   string  `json:"individual_id"`
	Name           string  `json:"name,omitempty"`
	DamageCategory string  `json:"damage_category,omitempty"`
	ImageFilename  string  `json:"image_filename,omitempty"`
	Distance       float64 `json:"distance"`
	Confidence     float64 `json:"confidence"`
	Rank           int     `json:"rank"`
	// Position is the entry's zero-based index in catalog order.
	Position  int  `json:"position"`
	Penalized bool `json:"penalized,omitempty"`

	Pair normalize.Pair         `json:"-"`
	Path []align.Correspondence `json:"-"`
}

// Results is sorted ascending by distance, ties in catalog order.
type Results []Result

// RankOf returns the 1-based rank of the individual, compared without regard
// to case, or -1 when it is absent.
func (r Results) RankOf(individualID string) int {
	for _, result := range r {
		if textutil.FoldEqual(result.IndividualID, individualID) {
			return result.Rank
		}
	}
	return -1
}

// Top returns the best n results. n <= 0 returns all of them.
func (r Results) Top(n int) Results {
	if n <= 0 || n > len(r) {
		n = len(r)
	}
	out := make(Results, n)
	copy(out, r[:n])
	return out
}

// Stats summarizes the distances of the non-penalized results.
type Stats struct {
	Count     int     `json:"count"`
	Penalized int     `json:"penalized"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"stddev"`
}

// Summary computes distance statistics for the run.
func (r Results) Summary() Stats {
	distances := make([]float64, 0, len(r))
	var s Stats
	for _, result := range r {
		if result.Penalized {
			s.Penalized++
			continue
		}
		distances = append(distances, result.Distance)
	}
	s.Count = len(distances)
	if s.Count == 0 {
		return s
	}
	s.Min = floats.Min(distances)
	s.Max = floats.Max(distances)
	s.Mean = stat.Mean(distances, nil)
	if s.Count > 1 {
		s.StdDev = stat.StdDev(distances, nil)
	}
	return s
}

// Exclusion records a catalog entry that could not be scored.
type Exclusion struct {
	IndividualID string `json:"individual_id"`
	Position     int    `json:"position"`
	Reason       string `json:"reason"`
	Err          error  `json:"-"`
}

// Exclusion reasons.
const (
	ReasonInvalidContour  = "invalid_contour"
	ReasonAlignmentFailed = "alignment_failed"
	ReasonLoadFailed      = "load_failed"
)

// ReasonClassifier lets an entry error name its own exclusion reason.
type ReasonClassifier interface {
	ExclusionReason() string
}

// ExclusionReason maps an entry error to a stable reason string.
func ExclusionReason(err error) string {
	var classifier ReasonClassifier
	if errors.As(err, &classifier) {
		if reason := classifier.ExclusionReason(); reason != "" {
			return reason
		}
	}
	switch {
	case errors.Is(err, contour.ErrInvalidContour):
		return ReasonInvalidContour
	case errors.Is(err, align.ErrAlignment):
		return ReasonAlignmentFailed
	default:
		return ReasonLoadFailed
	}
}

// Run is everything one call to Match produced.
type Run struct {
	ID       string      `json:"run_id"`
	QueryID  string      `json:"query_id,omitempty"`
	Results  Results     `json:"results"`
	Excluded []Exclusion `json:"excluded,omitempty"`
	// Skipped counts entries left out by the category filter.
	Skipped int `json:"skipped"`
	// Scanned counts entries read from the catalog, skipped ones included.
	Scanned   int           `json:"scanned"`
	Cancelled bool          `json:"cancelled,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}
