package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a wiggum configuration from the given YAML file
// path, then applies defaults for unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches standard locations and loads the first config
// found. Search order: ./wiggum.yaml, ~/.wiggum/config.yaml.
func LoadDefault() (*Config, error) {
	candidates := []string{"wiggum.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".wiggum", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return nil, fmt.Errorf("no wiggum config found (searched: %v)", candidates)
}

// applyDefaults fills in unset fields with package defaults.
func applyDefaults(cfg *Config) {
	w := &cfg.Wiggum

	if w.DefaultRetries == 0 {
		w.DefaultRetries = DefaultRetries
	}
	if w.TimeoutSeconds == 0 {
		w.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if w.MergeStrategy == "" {
		w.MergeStrategy = DefaultMergeStrategy
	}
	if w.PollIntervalSeconds == 0 {
		w.PollIntervalSeconds = DefaultPollSeconds
	}
	if w.BootDelaySeconds == 0 {
		w.BootDelaySeconds = DefaultBootDelaySecs
	}
	if w.MaxVerifyOutput == 0 {
		w.MaxVerifyOutput = DefaultMaxVerifyOutput
	}
}
