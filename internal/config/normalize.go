package config

import (
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMatching()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	c.Paths.CatalogPath = strings.TrimSpace(c.Paths.CatalogPath)
	if c.Paths.CatalogPath == "" {
		if value, ok := os.LookupEnv(catalogEnvVar); ok && strings.TrimSpace(value) != "" {
			c.Paths.CatalogPath = strings.TrimSpace(value)
		} else {
			c.Paths.CatalogPath = defaultCatalogPath
		}
	}
	var err error
	if c.Paths.CatalogPath, err = expandPath(c.Paths.CatalogPath); err != nil {
		return fmt.Errorf("paths.catalog_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ReportDir) == "" {
		c.Paths.ReportDir = defaultReportDir
	}
	if c.Paths.ReportDir, err = expandPath(c.Paths.ReportDir); err != nil {
		return fmt.Errorf("paths.report_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMatching() {
	m := &c.Matching
	if m.Workers <= 0 {
		m.Workers = runtime.NumCPU()
	}
	m.CostFunction = strings.ToLower(strings.TrimSpace(m.CostFunction))
	if m.CostFunction == "" {
		m.CostFunction = defaultCostFunction
	}
	m.Registration = strings.ToLower(strings.TrimSpace(m.Registration))
	if m.Registration == "" {
		m.Registration = defaultRegistration
	}
	if m.TrimFraction == 0 {
		m.TrimFraction = defaultTrimFraction
	}
	m.Anchor = strings.ToLower(strings.TrimSpace(m.Anchor))
	if m.Anchor == "" {
		m.Anchor = defaultAnchor
	}
	m.SizeMeasure = strings.ToLower(strings.TrimSpace(m.SizeMeasure))
	if m.SizeMeasure == "" {
		m.SizeMeasure = defaultSizeMeasure
	}

	categories := make([]string, 0, len(m.Categories))
	for _, category := range m.Categories {
		category = strings.TrimSpace(category)
		if category == "" || slices.Contains(categories, category) {
			continue
		}
		categories = append(categories, category)
	}
	m.Categories = categories
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
