package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Task is the immutable per-invocation input to the retry controller:
// the directive, the constraint set, and the external commands. Built
// once from config plus CLI overrides and never mutated.
type Task struct {
	ID             string
	Directive      string
	Baseline       string // git repo root the workspaces derive from
	AgentCommand   string
	VerifyCommand  string
	MergeStrategy  string
	ProtectedPaths []string
	MaxRetries     int
	Timeout        time.Duration
	PollInterval   time.Duration
	BootDelay      time.Duration
	SandboxPrefix  string
	MaxVerifyOut   int
	MaxWisdomBytes int
	BriefTemplate  string
}

// Overrides carries the optional per-invocation CLI flags.
type Overrides struct {
	TaskID        string
	Retries       int
	Timeout       time.Duration
	VerifyCommand string
	AgentCommand  string
	MergeStrategy string
}

// ResolveTask merges config, directive and overrides into a Task.
func ResolveTask(cfg *Config, directive string, baseline string, o Overrides) (*Task, error) {
	if strings.TrimSpace(directive) == "" {
		return nil, fmt.Errorf("directive must not be empty")
	}

	w := cfg.Wiggum
	t := &Task{
		ID:             o.TaskID,
		Directive:      directive,
		Baseline:       baseline,
		AgentCommand:   w.AgentCommand,
		VerifyCommand:  w.VerifyCommand,
		MergeStrategy:  w.MergeStrategy,
		ProtectedPaths: append([]string(nil), w.ProtectedFiles...),
		MaxRetries:     w.DefaultRetries,
		Timeout:        time.Duration(w.TimeoutSeconds) * time.Second,
		PollInterval:   time.Duration(w.PollIntervalSeconds) * time.Second,
		BootDelay:      time.Duration(w.BootDelaySeconds) * time.Second,
		SandboxPrefix:  w.SandboxPrefix,
		MaxVerifyOut:   w.MaxVerifyOutput,
		MaxWisdomBytes: w.MaxWisdomBytes,
		BriefTemplate:  w.BriefTemplate,
	}

	if o.Retries > 0 {
		t.MaxRetries = o.Retries
	}
	if o.Timeout > 0 {
		t.Timeout = o.Timeout
	}
	if o.VerifyCommand != "" {
		t.VerifyCommand = o.VerifyCommand
	}
	if o.AgentCommand != "" {
		t.AgentCommand = o.AgentCommand
	}
	if o.MergeStrategy != "" {
		t.MergeStrategy = o.MergeStrategy
	}

	if t.ID == "" {
		t.ID = GenerateTaskID(directive, time.Now())
	}
	if strings.TrimSpace(t.AgentCommand) == "" {
		return nil, fmt.Errorf("agent command must be set (config agent_command or --agent)")
	}
	if !validStrategy(t.MergeStrategy) {
		return nil, fmt.Errorf("merge strategy %q: must be one of %v", t.MergeStrategy, MergeStrategies)
	}

	return t, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateTaskID derives a stable, filesystem- and branch-safe task ID
// from the directive text plus a timestamp.
func GenerateTaskID(directive string, now time.Time) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(directive), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 40 {
		slug = slug[:40]
		slug = strings.Trim(slug, "-")
	}
	if slug == "" {
		slug = "task"
	}
	return fmt.Sprintf("%s-%s", slug, now.UTC().Format("20060102-150405"))
}
