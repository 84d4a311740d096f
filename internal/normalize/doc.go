// Package normalize maps a query contour and a catalog contour into a shared
// canonical frame so that their outlines can be compared point for point.
package normalize
