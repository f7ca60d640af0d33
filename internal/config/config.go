package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all msfcomp configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Input   InputConfig   `yaml:"input"`
	Scan    ScanConfig    `yaml:"scan"`
	Store   StoreConfig   `yaml:"store"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
}

// InputConfig controls how record files are discovered and read.
type InputConfig struct {
	// File extensions treated as record files (watch and directory arguments)
	Extensions []string `yaml:"extensions"`

	// Longest accepted line; longer lines fail the scan
	MaxLineBytes int `yaml:"max_line_bytes"`
}

// ScanConfig configures concurrent file scanning.
type ScanConfig struct {
	Workers int `yaml:"workers"`
}

// StoreConfig configures SQLite persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// WatchConfig configures the directory watcher.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "msfcomp",
		Version: "0.3.0",

		Input: InputConfig{
			Extensions:   []string{".msf"},
			MaxLineBytes: 1 << 20,
		},

		Scan: ScanConfig{
			Workers: 4,
		},

		Store: StoreConfig{
			DatabasePath: filepath.Join(".msfcomp", "records.db"),
		},

		Watch: WatchConfig{
			Debounce: "500ms",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Defaults still honor the environment
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("MSFCOMP_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if v := os.Getenv("MSFCOMP_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scan.Workers = n
		}
	}
	if lvl := os.Getenv("MSFCOMP_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = strings.ToLower(lvl)
	}
}

// GetDebounce returns the watch debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// HasRecordExtension reports whether path carries one of the configured extensions.
func (c *Config) HasRecordExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range c.Input.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// ValidLevels lists the accepted log levels.
var ValidLevels = []string{"debug", "info", "warn", "warning", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be at least 1, got %d", c.Scan.Workers)
	}
	if c.Input.MaxLineBytes < 64 {
		return fmt.Errorf("input.max_line_bytes too small: %d", c.Input.MaxLineBytes)
	}
	if len(c.Input.Extensions) == 0 {
		return fmt.Errorf("input.extensions must not be empty")
	}
	for _, e := range c.Input.Extensions {
		if !strings.HasPrefix(e, ".") {
			return fmt.Errorf("invalid extension %q (must start with '.')", e)
		}
	}
	if c.Store.DatabasePath == "" {
		return fmt.Errorf("store.database_path not configured (set MSFCOMP_DB)")
	}
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return fmt.Errorf("invalid watch.debounce %q: %w", c.Watch.Debounce, err)
	}
	if d <= 0 {
		return fmt.Errorf("watch.debounce must be positive, got %q", c.Watch.Debounce)
	}

	validLevel := false
	for _, l := range ValidLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}

	return nil
}
