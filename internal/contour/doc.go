// Package contour models traced fin outlines and their landmark indices.
//
// A Contour is an ordered, validated sequence of points plus five landmark
// indices (beginning of the leading edge, tip, end of the leading edge, notch
// and end of the trailing edge). Contours are immutable once built: every
// transformation (scaling, translation, simplification) returns a new value so
// catalog-owned outlines can be shared across matching workers without copies.
//
// New is the only way to obtain a Contour and rejects anything that would make
// downstream registration ambiguous: fewer than two points, non-finite
// coordinates, consecutive duplicate points, or landmarks out of order. Callers
// that load raw traces should run Collapse first when duplicate points are
// expected.
package contour
