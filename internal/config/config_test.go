package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"finmatch/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("FINMATCH_CATALOG", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "finmatch", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCatalog := filepath.Join(tempHome, ".local", "share", "finmatch", "catalog.db")
	if cfg.Paths.CatalogPath != wantCatalog {
		t.Fatalf("unexpected catalog path: got %q want %q", cfg.Paths.CatalogPath, wantCatalog)
	}
	if cfg.Matching.Workers != runtime.NumCPU() {
		t.Fatalf("expected workers to default to NumCPU, got %d", cfg.Matching.Workers)
	}
	if cfg.Matching.Samples != 100 || cfg.Matching.CanonicalSize != 600 {
		t.Fatalf("unexpected matching defaults: %+v", cfg.Matching)
	}
	if cfg.Matching.CostFunction != "euclidean" || cfg.Matching.Anchor != "tip" {
		t.Fatalf("unexpected matching names: %+v", cfg.Matching)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{filepath.Dir(cfg.Paths.CatalogPath), cfg.Paths.LogDir, cfg.Paths.ReportDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadUsesCatalogEnvFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	catalogPath := filepath.Join(t.TempDir(), "fins.db")
	t.Setenv("FINMATCH_CATALOG", catalogPath)

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.CatalogPath != catalogPath {
		t.Fatalf("expected catalog from env, got %q", cfg.Paths.CatalogPath)
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "finmatch.toml")

	type payload struct {
		Paths struct {
			CatalogPath string `toml:"catalog_path"`
		} `toml:"paths"`
		Matching struct {
			Workers      int      `toml:"workers"`
			CostFunction string   `toml:"cost_function"`
			Anchor       string   `toml:"anchor"`
			Categories   []string `toml:"categories"`
		} `toml:"matching"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.CatalogPath = "~/fins/catalog.db"
	custom.Matching.Workers = 3
	custom.Matching.CostFunction = " Curvature "
	custom.Matching.Anchor = "NOTCH"
	custom.Matching.Categories = []string{"Tip-Nick", "", "Tip-Nick", "Missing Tip"}
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom path to be used, got %q exists=%v", resolved, exists)
	}
	home, _ := os.UserHomeDir()
	if cfg.Paths.CatalogPath != filepath.Join(home, "fins", "catalog.db") {
		t.Fatalf("tilde not expanded: %q", cfg.Paths.CatalogPath)
	}
	if cfg.Matching.Workers != 3 {
		t.Fatalf("workers = %d", cfg.Matching.Workers)
	}
	if cfg.Matching.CostFunction != "curvature" || cfg.Matching.Anchor != "notch" {
		t.Fatalf("names not normalized: %q %q", cfg.Matching.CostFunction, cfg.Matching.Anchor)
	}
	if strings.Join(cfg.Matching.Categories, ",") != "Tip-Nick,Missing Tip" {
		t.Fatalf("categories not deduplicated: %v", cfg.Matching.Categories)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("logging format = %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "finmatch.toml")
	if err := os.WriteFile(configPath, []byte("[matching]\nsample_count = 5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to fail parsing")
	}
}

func TestValidateRejectsBadMatching(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"samples", func(c *config.Config) { c.Matching.Samples = 1 }, "matching.samples"},
		{"band", func(c *config.Config) { c.Matching.Band = -1 }, "matching.band"},
		{"cost", func(c *config.Config) { c.Matching.CostFunction = "manhattan" }, "matching.cost_function"},
		{"penalty", func(c *config.Config) { c.Matching.WorstCasePenalty = 0 }, "matching.worst_case_penalty"},
		{"registration", func(c *config.Config) { c.Matching.Registration = "optimal_tip" }, "matching.registration"},
		{"trim", func(c *config.Config) { c.Matching.TrimFraction = 1.5 }, "matching.trim_fraction"},
		{"anchor", func(c *config.Config) { c.Matching.Anchor = "dorsal" }, "matching.anchor"},
		{"size", func(c *config.Config) { c.Matching.SizeMeasure = "area" }, "matching.size_measure"},
		{"canonical", func(c *config.Config) { c.Matching.CanonicalSize = -5 }, "matching.canonical_size"},
		{"simplify", func(c *config.Config) { c.Matching.SimplifyTolerance = -1 }, "matching.simplify_tolerance"},
		{"level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.CatalogPath = "/tmp/catalog.db"
			cfg.Matching.Workers = 1
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(encoded), "canonical_size") {
		t.Fatalf("encoded config missing matching section:\n%s", encoded)
	}
}
