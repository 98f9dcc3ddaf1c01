package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loom/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loom.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsAreValidForSQLiteBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "sqlite"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default sqlite config invalid: %v", err)
	}
}

func TestLoadAppliesFileOverrides(t *testing.T) {
	path := writeConfig(t, `
[store]
backend = "sqlite"

[pipeline]
worker_pool = ["alpha", "beta", "gamma"]
max_rows_per_run = 5
capacity_per_worker = 2
failure_threshold = 4

[logging]
format = "json"
level = "debug"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if len(cfg.Pipeline.WorkerPool) != 3 || cfg.Pipeline.WorkerPool[0] != "alpha" {
		t.Fatalf("unexpected pool: %v", cfg.Pipeline.WorkerPool)
	}
	if cfg.Pipeline.MaxRowsPerRun != 5 || cfg.Pipeline.CapacityPerWorker != 2 {
		t.Fatalf("unexpected limits: %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.FailureThreshold != 4 {
		t.Fatalf("failure threshold = %d", cfg.Pipeline.FailureThreshold)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	// Untouched sections keep their defaults.
	if cfg.Pipeline.StaleThresholdMinutes != 15 {
		t.Fatalf("stale threshold = %d, want default 15", cfg.Pipeline.StaleThresholdMinutes)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("file should not exist")
	}
	if cfg.Store.Backend != "remote" {
		t.Fatalf("backend = %q, want remote default", cfg.Store.Backend)
	}
}

func TestValidateRejectsRemoteBackendWithoutBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "remote"
	cfg.Remote.BaseURL = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "remote.base_url") {
		t.Fatalf("expected remote.base_url error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown backend", func(c *config.Config) { c.Store.Backend = "mysql" }, "store.backend"},
		{"empty pool", func(c *config.Config) { c.Pipeline.WorkerPool = nil }, "worker_pool"},
		{"duplicate worker", func(c *config.Config) { c.Pipeline.WorkerPool = []string{"w", "w"} }, "duplicate"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store.Backend = "sqlite"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestSampleConfigRequiresBaseURLUntilSet(t *testing.T) {
	// The shipped sample selects the remote backend with a blank base_url;
	// loading it verbatim must fail with a pointer at the missing value.
	path := writeConfig(t, config.SampleConfig())
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "remote.base_url") {
		t.Fatalf("expected remote.base_url error, got %v", err)
	}

	filled := strings.Replace(config.SampleConfig(),
		`base_url = ""`, `base_url = "https://example.invalid/exec"`, 1)
	cfg, _, exists, err := config.Load(writeConfig(t, filled))
	if err != nil {
		t.Fatalf("filled sample failed to load: %v", err)
	}
	if !exists {
		t.Fatal("filled sample should exist")
	}
	if len(cfg.Pipeline.WorkerPool) == 0 {
		t.Fatal("sample config must define a worker pool")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
}
