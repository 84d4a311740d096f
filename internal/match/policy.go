package match

import (
	"fmt"
	"runtime"

	"finmatch/internal/align"
	"finmatch/internal/config"
	"finmatch/internal/contour"
	"finmatch/internal/normalize"
)

// Policy centralizes the registration and ranking parameters of a run.
type Policy struct {
	Workers         int
	Samples         int
	Band            int
	CostFunction    string
	CurvatureWeight float64
	Penalty         float64
	Registration    align.Registration
	TrimFraction    float64
	Anchor          contour.Landmark
	SizeMeasure     normalize.SizeMeasure
	CanonicalSize   float64
	// Categories limits matching to entries whose damage category is listed.
	// Empty matches every entry.
	Categories []string
}

// DefaultPolicy returns one worker per CPU, Euclidean cost over 100 samples
// per edge and a tip-anchored 600-unit canonical frame.
func DefaultPolicy() Policy {
	registration, err := align.ParseRegistration(m.Registration)
	if err != nil {
		return Policy{}, fmt.Errorf("matching.registration: %w", err)
	}
	return Policy{
		Workers:         runtime.NumCPU(),
		Samples:         align.DefaultSamples,
		CostFunction:    align.CostEuclidean,
		CurvatureWeight: 50,
		Penalty:         align.DefaultPenalty,
		Registration:    align.RegistrationFixed,
		TrimFraction:    align.DefaultTrimFraction,
		Anchor:          contour.Tip,
		SizeMeasure:     normalize.SizeSpan,
		CanonicalSize:   normalize.DefaultCanonicalSize,
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()

	if p.Workers <= 0 {
		p.Workers = d.Workers
	}
	if p.Samples < 2 {
		p.Samples = d.Samples
	}
	if p.Band < 0 {
		p.Band = 0
	}
	if p.CostFunction == "" {
		p.CostFunction = d.CostFunction
	}
	if p.CurvatureWeight < 0 {
		p.CurvatureWeight = d.CurvatureWeight
	}
	if p.Penalty <= 0 {
		p.Penalty = d.Penalty
	}
	if p.Registration != align.RegistrationTrimLeading {
		p.Registration = align.RegistrationFixed
	}
	if p.TrimFraction <= 0 || p.TrimFraction >= 1 {
		p.TrimFraction = d.TrimFraction
	}
	if p.Anchor < contour.BeginLE || p.Anchor > contour.EndTE {
		p.Anchor = d.Anchor
	}
	if p.SizeMeasure != normalize.SizeExtent {
		p.SizeMeasure = normalize.SizeSpan
	}
	if p.CanonicalSize <= 0 {
		p.CanonicalSize = d.CanonicalSize
	}
	return p
}

// PolicyFromConfig translates the [matching] section into a Policy.
func PolicyFromConfig(cfg *config.Config) (Policy, error) {
	if cfg == nil {
		return DefaultPolicy(), nil
	}
	m := cfg.Matching
	anchor, err := contour.ParseLandmark(m.Anchor)
	if err != nil {
		return Policy{}, fmt.Errorf("matching.anchor: %w", err)
	}
	size, err := normalize.ParseSizeMeasure(m.SizeMeasure)
	if err != nil {
		return Policy{}, fmt.Errorf("matching.size_measure: %w", err)
	}
	return Policy{
		Workers:         m.Workers,
		Samples:         m.Samples,
		Band:            m.Band,
		CostFunction:    m.CostFunction,
		CurvatureWeight: m.CurvatureWeight,
		Penalty:         m.WorstCasePenalty,
		Registration:    registration,
		TrimFraction:    m.TrimFraction,
		Anchor:          anchor,
		SizeMeasure:     size,
		CanonicalSize:   m.CanonicalSize,
		Categories:      append([]string(nil), m.Categories...),
	}, nil
}
