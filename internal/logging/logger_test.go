package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"finmatch/internal/config"
	"finmatch/internal/logging"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "debug"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("debug message")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "debug message") {
		t.Fatalf("expected debug line in log file, got %q", content)
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	component := logging.NewComponentLogger(logger, "matcher")
	component.Info("run complete", logging.Args(logging.Int("results", 3), logging.String("query_id", "NZ 12"))...)
	component.Debug("suppressed")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "INFO matcher: run complete") {
		t.Fatalf("missing component prefix: %q", line)
	}
	if !strings.Contains(line, `results=3`) || !strings.Contains(line, `query_id="NZ 12"`) {
		t.Fatalf("missing fields: %q", line)
	}
	if strings.Contains(line, "suppressed") || strings.Contains(line, ".go:") {
		t.Fatalf("info logger leaked debug output or source: %q", line)
	}
}

func TestJSONLoggerAddsWarningContext(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithQueryID(logging.WithRunID(context.Background(), "run-1"), "q-7")
	logging.WarnWithContext(logging.WithContext(ctx, logger), "entry excluded", "entry_excluded",
		logging.Error(errors.New("bad landmarks")))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(content, &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	want := map[string]string{
		"level":                "warn",
		"msg":                  "entry excluded",
		logging.FieldRunID:     "run-1",
		logging.FieldQueryID:   "q-7",
		logging.FieldEventType: "entry_excluded",
		logging.FieldErrorHint: "check logs for details",
		logging.FieldImpact:    "operation completed with warnings",
		"error":                "bad landmarks",
	}
	for key, value := range want {
		if got, _ := record[key].(string); got != value {
			t.Fatalf("field %s = %v, want %q", key, record[key], value)
		}
	}
	if _, ok := record["ts"]; !ok {
		t.Fatal("expected ts field")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
