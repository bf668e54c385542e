package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDiffWriteThreshold = 0.5
	DefaultDiffContextLines   = 3

	ConfigFileName = "config.yaml"
	dirEnv         = "EDITSTORE_DIR"
)

// Config holds the settings shared by the CLI and the MCP server. The engine
// itself never reads it from disk; binaries load it and pass values down.
type Config struct {
	// Root is the directory attached as the filesystem store.
	Root string `yaml:"root,omitempty"`
	// DiffWriteThreshold is the fraction of changed lines above which a
	// reconstructed diff collapses into a single write.
	DiffWriteThreshold float64 `yaml:"diff_write_threshold,omitempty"`
	// DiffContextLines is the context kept around each reconstructed hunk.
	DiffContextLines int    `yaml:"diff_context_lines"`
	IncludeHidden    bool   `yaml:"include_hidden,omitempty"`
	GlobalIgnoreFile string `yaml:"global_ignore_file,omitempty"`
	// SeedDir holds documents preloaded into the memory store.
	SeedDir     string `yaml:"seed_dir,omitempty"`
	SessionFile string `yaml:"session_file,omitempty"`
	LogFile     string `yaml:"log_file,omitempty"`
	// Watch reports out-of-band edits under Root (MCP server only).
	Watch bool `yaml:"watch,omitempty"`
}

// DefaultConfig returns a Config with every tunable set.
func DefaultConfig() *Config {
	return &Config{
		DiffWriteThreshold: DefaultDiffWriteThreshold,
		DiffContextLines:   DefaultDiffContextLines,
	}
}

// GetConfigDir returns $EDITSTORE_DIR, or ~/.editstore when unset.
func GetConfigDir() (string, error) {
	if dir := os.Getenv(dirEnv); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".editstore"), nil
}

// LoadConfig reads the yaml file at path. A missing file yields the
// defaults. Relative paths inside the file are resolved against its
// directory.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// SaveConfig writes cfg to path atomically.
func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return AtomicWriteFile(path, data, 0600)
}

func (c *Config) applyDefaults() {
	if c.DiffWriteThreshold <= 0 {
		c.DiffWriteThreshold = DefaultDiffWriteThreshold
	}
	if c.DiffContextLines < 0 {
		c.DiffContextLines = DefaultDiffContextLines
	}
}

func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{&c.Root, &c.GlobalIgnoreFile, &c.SeedDir, &c.SessionFile, &c.LogFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}
