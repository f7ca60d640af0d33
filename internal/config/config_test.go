package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "msfcomp" {
		t.Errorf("expected Name=msfcomp, got %s", cfg.Name)
	}
	if cfg.Scan.Workers != 4 {
		t.Errorf("expected Workers=4, got %d", cfg.Scan.Workers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("MSFCOMP_DB", "")
	t.Setenv("MSFCOMP_WORKERS", "")
	t.Setenv("MSFCOMP_LOG_LEVEL", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Scan.Workers = 9
	cfg.Input.Extensions = []string{".msf", ".rec"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Scan.Workers != 9 {
		t.Errorf("expected Workers=9, got %d", loaded.Scan.Workers)
	}
	if len(loaded.Input.Extensions) != 2 {
		t.Errorf("expected 2 extensions, got %v", loaded.Input.Extensions)
	}
}

func TestConfig_LoadMissingFile(t *testing.T) {
	t.Setenv("MSFCOMP_DB", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file should return defaults: %v", err)
	}
	if cfg.Store.DatabasePath != DefaultConfig().Store.DatabasePath {
		t.Errorf("unexpected database path %s", cfg.Store.DatabasePath)
	}
}

func TestConfig_LoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("scan: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scan.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero workers")
	}

	cfg = DefaultConfig()
	cfg.Input.Extensions = []string{"msf"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for extension without dot")
	}

	cfg = DefaultConfig()
	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid level")
	}

	cfg = DefaultConfig()
	cfg.Watch.Debounce = "soon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid debounce")
	}

	for _, d := range []string{"0s", "-1s"} {
		cfg = DefaultConfig()
		cfg.Watch.Debounce = d
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected validation error for non-positive debounce %q", d)
		}
	}

	cfg = DefaultConfig()
	cfg.Watch.Debounce = "2s"
	if err := cfg.Validate(); err != nil {
		t.Errorf("positive debounce rejected: %v", err)
	}
	if got := cfg.GetDebounce(); got != 2*time.Second {
		t.Errorf("GetDebounce() = %v, want 2s", got)
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.GetDebounce() != 500*time.Millisecond {
		t.Errorf("unexpected debounce %v", cfg.GetDebounce())
	}
	cfg.Watch.Debounce = "garbage"
	if cfg.GetDebounce() != 500*time.Millisecond {
		t.Error("GetDebounce should fall back to default")
	}

	if !cfg.HasRecordExtension("/data/a.MSF") {
		t.Error("extension match should be case-insensitive")
	}
	if cfg.HasRecordExtension("/data/a.txt") {
		t.Error(".txt should not match")
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	if lc.IsCategoryEnabled("scan") {
		t.Error("categories must be disabled outside debug mode")
	}

	lc.DebugMode = true
	if !lc.IsCategoryEnabled("scan") {
		t.Error("all categories enabled when no filter is set")
	}

	lc.Categories = map[string]bool{"scan": false}
	if lc.IsCategoryEnabled("scan") {
		t.Error("scan explicitly disabled")
	}
	if !lc.IsCategoryEnabled("store") {
		t.Error("unlisted categories default to enabled")
	}
}
