package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the top-level configuration for sv-autoexpand
type Config struct {
	// Sources is a list of glob patterns for Verilog files in the project
	Sources []string `json:"sources,omitempty"`

	// Exclude is a list of glob patterns to leave out of the project index
	Exclude []string `json:"exclude,omitempty"`

	// Expand contains expansion options
	Expand ExpandConfig `json:"expand,omitempty"`

	// Lint contains lint rule configuration
	Lint LintConfig `json:"lint,omitempty"`

	// Analysis contains indexing options
	Analysis AnalysisConfig `json:"analysis,omitempty"`
}

// ExpandConfig controls which AUTO kinds are expanded
type ExpandConfig struct {
	// Kinds maps marker names (AUTOARG, AUTOINST, ...) to enabled state.
	// Kinds missing from the map are enabled.
	Kinds map[string]bool `json:"kinds,omitempty"`
}

// LintConfig contains lint configuration
type LintConfig struct {
	// Rules maps rule names to severity: "off", "info", "warning", "error".
	// The lint command only acts on "off", which hides that rule's
	// violations from the text report; other values do not change the
	// severity a violation is reported with.
	Rules map[string]string `json:"rules,omitempty"`

	// IgnorePatterns is a list of file patterns to skip entirely
	IgnorePatterns []string `json:"ignorePatterns,omitempty"`
}

// CacheConfig controls the incremental indexing cache
type CacheConfig struct {
	// Enabled turns on incremental cache usage
	Enabled *bool `json:"enabled,omitempty"`

	// Dir is the cache directory (relative to project root if not absolute)
	Dir string `json:"dir,omitempty"`
}

// AnalysisConfig contains indexing options
type AnalysisConfig struct {
	// MaxParallelFiles limits concurrent file extraction (0 = auto)
	MaxParallelFiles int `json:"maxParallelFiles,omitempty"`

	// Cache controls the incremental indexing cache
	Cache CacheConfig `json:"cache,omitempty"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Sources: []string{"*.v", "*.sv", "**/*.v", "**/*.sv"},
		Expand: ExpandConfig{
			Kinds: map[string]bool{},
		},
		Lint: LintConfig{
			Rules:          map[string]string{},
			IgnorePatterns: []string{},
		},
		Analysis: AnalysisConfig{
			MaxParallelFiles: 0, // auto
			Cache: CacheConfig{
				Enabled: boolPtr(true),
				Dir:     ".sv_autoexpand_cache",
			},
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// Load finds and loads the configuration file
// Search order:
//  1. ./sv_autoexpand.json (current working directory)
//  2. ./.sv_autoexpand.json (current working directory)
//  3. <rootPath>/sv_autoexpand.json (if different from cwd)
//  4. <rootPath>/.sv_autoexpand.json (if different from cwd)
//  5. ~/.config/sv_autoexpand/config.json
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	searchPaths := []string{
		filepath.Join(cwd, "sv_autoexpand.json"),
		filepath.Join(cwd, ".sv_autoexpand.json"),
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			searchPaths = append(searchPaths,
				filepath.Join(rootPath, "sv_autoexpand.json"),
				filepath.Join(rootPath, ".sv_autoexpand.json"),
			)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "sv_autoexpand", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if len(c.Sources) == 0 {
		c.Sources = []string{"*.v", "*.sv", "**/*.v", "**/*.sv"}
	}
	if c.Expand.Kinds == nil {
		c.Expand.Kinds = map[string]bool{}
	}
	if c.Lint.Rules == nil {
		c.Lint.Rules = make(map[string]string)
	}
	if c.Analysis.Cache.Dir == "" {
		c.Analysis.Cache.Dir = ".sv_autoexpand_cache"
	}
	if c.Analysis.Cache.Enabled == nil {
		c.Analysis.Cache.Enabled = boolPtr(true)
	}
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// KindEnabled returns true unless the marker kind is switched off
func (c *Config) KindEnabled(kind string) bool {
	if enabled, ok := c.Expand.Kinds[kind]; ok {
		return enabled
	}
	return true
}

// GetRuleSeverity returns the severity for a rule, or the default if not configured
func (c *Config) GetRuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the rule is not set to "off"
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity != "off"
	}
	return true // enabled by default
}

// ShouldIgnoreFile checks if a file should be skipped entirely
func (c *Config) ShouldIgnoreFile(filePath string) bool {
	for _, pattern := range c.Lint.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, filePath); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(filePath)); matched {
			return true
		}
	}
	return false
}
