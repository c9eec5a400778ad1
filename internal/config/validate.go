package config

import (
	"fmt"
	"strings"
)

// Validate checks a loaded config for problems that would otherwise only
// surface mid-run, after a workspace has already been spawned.
func (cfg *Config) Validate() error {
	var errs []string
	w := cfg.Wiggum

	if strings.TrimSpace(w.AgentCommand) == "" {
		errs = append(errs, "agent_command must be set")
	}
	if !validStrategy(w.MergeStrategy) {
		errs = append(errs, fmt.Sprintf("merge_strategy %q: must be one of %v", w.MergeStrategy, MergeStrategies))
	}
	if w.DefaultRetries < 1 {
		errs = append(errs, fmt.Sprintf("default_retries %d: must be at least 1", w.DefaultRetries))
	}
	if w.TimeoutSeconds < 1 {
		errs = append(errs, fmt.Sprintf("timeout_seconds %d: must be at least 1", w.TimeoutSeconds))
	}
	if w.PollIntervalSeconds < 1 {
		errs = append(errs, fmt.Sprintf("poll_interval_seconds %d: must be at least 1", w.PollIntervalSeconds))
	}
	if w.MaxVerifyOutput < 0 {
		errs = append(errs, "max_verify_output must not be negative")
	}
	if w.MaxWisdomBytes < 0 {
		errs = append(errs, "max_wisdom_bytes must not be negative")
	}
	for _, p := range w.ProtectedFiles {
		if strings.HasPrefix(p, "/") || strings.Contains(p, "..") {
			errs = append(errs, fmt.Sprintf("protected file %q: must be a relative path inside the workspace", p))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validStrategy(s string) bool {
	for _, v := range MergeStrategies {
		if s == v {
			return true
		}
	}
	return false
}
