package catalog

import (
	"iter"

	"finmatch/internal/contour"
)

// Entry is one known individual offered to the matcher.
type Entry struct {
	IndividualID   string
	Name           string
	DamageCategory string
	ImageFilename  string
	Contour        *contour.Contour
	// Err records why the stored outline could not be rebuilt. Contour is
	// nil when Err is set.
	Err error
}

// Entries yields entries in slice order.
func Entries(entries []Entry) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range entries {
			if !yield(e) {
				return
			}
		}
	}
}
