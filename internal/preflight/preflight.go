package preflight

import (
	"context"
	"path/filepath"

	"finmatch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Catalog directory", filepath.Dir(cfg.Paths.CatalogPath)),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	// Reports are optional; only check the directory when it exists.
	if cfg.Paths.ReportDir != "" && dirExists(cfg.Paths.ReportDir) {
		results = append(results, CheckDirectoryAccess("Report directory", cfg.Paths.ReportDir))
	}

	if results[0].Passed {
		results = append(results, CheckCatalog(ctx, cfg.Paths.CatalogPath))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
