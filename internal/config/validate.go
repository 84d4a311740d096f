package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"finmatch/internal/align"
	"finmatch/internal/contour"
	"finmatch/internal/normalize"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.CatalogPath) == "" {
		return fmt.Errorf("paths.catalog_path must be set (or export %s)", catalogEnvVar)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateMatching() error {
	m := c.Matching
	if err := ensurePositiveMap(map[string]int{
		"matching.workers": m.Workers,
		"matching.samples": m.Samples,
	}); err != nil {
		return err
	}
	if m.Samples < 2 || m.Samples > maxSamples {
		return fmt.Errorf("matching.samples must be between 2 and %d", maxSamples)
	}
	if m.Band < 0 {
		return errors.New("matching.band must be >= 0")
	}
	if _, err := align.CostByName(m.CostFunction, m.CurvatureWeight); err != nil {
		return fmt.Errorf("matching.cost_function: %w", err)
	}
	if m.CurvatureWeight < 0 {
		return errors.New("matching.curvature_weight must be >= 0")
	}
	if !positiveFinite(m.WorstCasePenalty) {
		return errors.New("matching.worst_case_penalty must be a positive number")
	}
	if _, err := align.ParseRegistration(m.Registration); err != nil {
		return fmt.Errorf("matching.registration: %w", err)
	}
	if !(m.TrimFraction > 0 && m.TrimFraction < 1) {
		return errors.New("matching.trim_fraction must be between 0 and 1")
	}
	if _, err := contour.ParseLandmark(m.Anchor); err != nil {
		return fmt.Errorf("matching.anchor: %w", err)
	}
	if _, err := normalize.ParseSizeMeasure(m.SizeMeasure); err != nil {
		return fmt.Errorf("matching.size_measure: %w", err)
	}
	if !positiveFinite(m.CanonicalSize) {
		return errors.New("matching.canonical_size must be a positive number")
	}
	if m.SimplifyTolerance < 0 || math.IsNaN(m.SimplifyTolerance) {
		return errors.New("matching.simplify_tolerance must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
