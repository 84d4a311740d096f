package normalize

import (
	"fmt"
	"strings"

	"finmatch/internal/contour"
)

// DefaultCanonicalSize is the characteristic size every contour is scaled to.
const DefaultCanonicalSize = 600.0

// SizeMeasure selects how a contour's characteristic size is measured.
type SizeMeasure string

const (
	// SizeSpan measures the straight distance from the start of the leading
	// edge to the tip, falling back to SizeExtent when that distance is zero.
	SizeSpan SizeMeasure = "span"
	// SizeExtent measures the bounding-box diagonal.
	SizeExtent SizeMeasure = "extent"
)

// ParseSizeMeasure validates a configuration value.
func ParseSizeMeasure(value string) (SizeMeasure, error) {
	switch m := SizeMeasure(strings.ToLower(strings.TrimSpace(value))); m {
	case SizeSpan, SizeExtent:
		return m, nil
	case "":
		return SizeSpan, nil
	default:
		return "", fmt.Errorf("unknown size measure %q", value)
	}
}

// Options controls the canonical frame.
type Options struct {
	Anchor        contour.Landmark
	Size          SizeMeasure
	CanonicalSize float64
}

// DefaultOptions anchors on the tip and scales the leading-edge span to 600 units.
func DefaultOptions() Options {
	return Options{
		Anchor:        contour.Tip,
		Size:          SizeSpan,
		CanonicalSize: DefaultCanonicalSize,
	}
}

func (o Options) normalized() Options {
	switch o.Anchor {
	case contour.BeginLE, contour.Tip, contour.EndLE, contour.Notch, contour.EndTE:
	default:
		o.Anchor = contour.Tip
	}
	if o.Size != SizeExtent {
		o.Size = SizeSpan
	}
	if o.CanonicalSize <= 0 {
		o.CanonicalSize = DefaultCanonicalSize
	}
	return o
}

// Pair holds two contours in the canonical frame along with the mapping from
// the unknown contour's original frame onto the database contour's original
// frame: database ≈ unknown*Scale + (XOffset, YOffset).
type Pair struct {
	Unknown       *contour.Contour
	Database      *contour.Contour
	Scale         float64
	XOffset       float64
	YOffset       float64
	CanonicalSize float64
}

// Normalize validates both contours and returns them in the canonical frame.
// Neither input is modified. Each side is canonicalized on its own, so
// swapping the arguments swaps the contours in the result without changing
// them.
func Normalize(unknown, database *contour.Contour, opts Options) (Pair, error) {
	opts = opts.normalized()
	if err := unknown.Validate(); err != nil {
		return Pair{}, fmt.Errorf("unknown contour: %w", err)
	}
	if err := database.Validate(); err != nil {
		return Pair{}, fmt.Errorf("database contour: %w", err)
	}

	unkSize := characteristicSize(unknown, opts.Size)
	dbSize := characteristicSize(database, opts.Size)

	unkCanon, err := canonicalize(unknown, opts, unkSize)
	if err != nil {
		return Pair{}, fmt.Errorf("unknown contour: %w", err)
	}
	dbCanon, err := canonicalize(database, opts, dbSize)
	if err != nil {
		return Pair{}, fmt.Errorf("database contour: %w", err)
	}

	scale := dbSize / unkSize
	unkAnchor := unknown.Landmark(opts.Anchor)
	dbAnchor := database.Landmark(opts.Anchor)
	return Pair{
		Unknown:       unkCanon,
		Database:      dbCanon,
		Scale:         scale,
		XOffset:       dbAnchor.X - unkAnchor.X*scale,
		YOffset:       dbAnchor.Y - unkAnchor.Y*scale,
		CanonicalSize: opts.CanonicalSize,
	}, nil
}

// CharacteristicSize reports the size measure used to scale c.
func CharacteristicSize(c *contour.Contour, measure SizeMeasure) float64 {
	return characteristicSize(c, measure)
}

func characteristicSize(c *contour.Contour, measure SizeMeasure) float64 {
	if measure == SizeSpan {
		f, _ := c.Features()
		if span := c.Distance(f.BeginLE, f.Tip); span > 0 {
			return span
		}
	}
	return c.Extent()
}

func canonicalize(c *contour.Contour, opts Options, size float64) (*contour.Contour, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: zero characteristic size", contour.ErrInvalidContour)
	}
	anchor := c.Landmark(opts.Anchor)
	s := opts.CanonicalSize / size
	return c.Transform(s, -anchor.X*s, -anchor.Y*s)
}
