package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"finmatch/internal/catalog"
	"finmatch/internal/config"
	"finmatch/internal/fileutil"
	"finmatch/internal/match"
	"finmatch/internal/textutil"
	"finmatch/internal/tracefile"
)

// matchFlags are the policy overrides shared by match and queue.
type matchFlags struct {
	workers    int
	categories []string
}

func (f matchFlags) policy(cfg *config.Config) (match.Policy, error) {
	policy, err := match.PolicyFromConfig(cfg)
	if err != nil {
		return match.Policy{}, err
	}
	if f.workers > 0 {
		policy.Workers = f.workers
	}
	if len(f.categories) > 0 {
		policy.Categories = f.categories
	}
	return policy, nil
}

func (c *commandContext) newMatcher(policy match.Policy) (*match.Matcher, error) {
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return match.New(policy, logger)
}

// loadCatalog reads every cataloged individual. An empty catalog is an error
// because nothing could be ranked.
func (c *commandContext) loadCatalog(ctx context.Context) ([]catalog.Entry, error) {
	store, err := c.catalogStore()
	if err != nil {
		return nil, err
	}
	entries, err := store.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog %s is empty; add individuals with `finmatch catalog import`", store.Path())
	}
	return entries, nil
}

// loadTrace reads one document from a trace file. index is 1-based.
func loadTrace(path string, index int) (tracefile.File, error) {
	expanded, err := config.ExpandPath(strings.TrimSpace(path))
	if err != nil {
		return tracefile.File{}, err
	}
	files, err := tracefile.Load(expanded)
	if err != nil {
		return tracefile.File{}, err
	}
	if index < 1 || index > len(files) {
		return tracefile.File{}, fmt.Errorf("%s holds %d traces; --index %d is out of range", path, len(files), index)
	}
	return files[index-1], nil
}

// reportTarget resolves the --report value. "auto" places the report in the
// configured report directory under the query's sanitized identifier.
func reportTarget(cfg *config.Config, value, queryID string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "auto" {
		return cfg.ReportPath(textutil.SanitizeFileName(queryID)), nil
	}
	return config.ExpandPath(value)
}

func writeReportFile(path string, run *match.Run) error {
	if path == "" {
		return errors.New("report path is empty")
	}
	err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return match.WriteReport(w, run)
	})
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

type exclusionView struct {
	IndividualID string `json:"individual_id"`
	Position     int    `json:"position"`
	Reason       string `json:"reason"`
	Error        string `json:"error,omitempty"`
}

func exclusionViews(excluded []match.Exclusion) []exclusionView {
	out := make([]exclusionView, 0, len(excluded))
	for _, ex := range excluded {
		view := exclusionView{IndividualID: ex.IndividualID, Position: ex.Position, Reason: ex.Reason}
		if ex.Err != nil {
			view.Error = ex.Err.Error()
		}
		out = append(out, view)
	}
	return out
}
