package config

// LoggingConfig configures the categorized file logs.
type LoggingConfig struct {
	// debug, info, warn, error
	Level string `yaml:"level" json:"level,omitempty"`

	// Master toggle - false = no log files
	DebugMode bool `yaml:"debug_mode" json:"debug_mode,omitempty"`

	// One JSON object per line instead of text
	JSONFormat bool `yaml:"json_format" json:"json_format,omitempty"`

	// Per-category toggles
	Categories map[string]bool `yaml:"categories,omitempty" json:"categories,omitempty"`
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Returns false if debug_mode is false.
// Returns true if debug_mode is true and category is enabled (or not specified).
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}
