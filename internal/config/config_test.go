package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wiggum.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
wiggum:
  agent_command: "agent --brief {{brief}}"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	w := cfg.Wiggum
	if w.DefaultRetries != DefaultRetries {
		t.Errorf("retries = %d, want %d", w.DefaultRetries, DefaultRetries)
	}
	if w.TimeoutSeconds != DefaultTimeoutSeconds {
		t.Errorf("timeout = %d, want %d", w.TimeoutSeconds, DefaultTimeoutSeconds)
	}
	if w.MergeStrategy != DefaultMergeStrategy {
		t.Errorf("strategy = %q, want %q", w.MergeStrategy, DefaultMergeStrategy)
	}
	if w.MaxVerifyOutput != DefaultMaxVerifyOutput {
		t.Errorf("max verify output = %d, want %d", w.MaxVerifyOutput, DefaultMaxVerifyOutput)
	}
}

func TestLoadExplicitValuesSurviveDefaults(t *testing.T) {
	path := writeConfig(t, `
wiggum:
  agent_command: "agent {{brief}}"
  default_retries: 7
  merge_strategy: rebase
  protected_files:
    - Makefile
    - ci/verify.sh
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Wiggum.DefaultRetries != 7 {
		t.Errorf("retries = %d, want 7", cfg.Wiggum.DefaultRetries)
	}
	if cfg.Wiggum.MergeStrategy != "rebase" {
		t.Errorf("strategy = %q, want rebase", cfg.Wiggum.MergeStrategy)
	}
	if len(cfg.Wiggum.ProtectedFiles) != 2 {
		t.Errorf("protected files = %v", cfg.Wiggum.ProtectedFiles)
	}
}

func TestValidateCatchesProblems(t *testing.T) {
	path := writeConfig(t, `
wiggum:
  merge_strategy: cherry-pick
  protected_files:
    - ../outside
    - /etc/passwd
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"agent_command", "merge_strategy", "../outside", "/etc/passwd"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("validation error missing %q:\n%v", want, err)
		}
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	path := writeConfig(t, `
wiggum:
  agent_command: "agent {{brief}}"
  verify_command: "make test"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestResolveTaskOverrides(t *testing.T) {
	cfg := &Config{Wiggum: Wiggum{
		AgentCommand:   "agent {{brief}}",
		VerifyCommand:  "make test",
		MergeStrategy:  "squash",
		DefaultRetries: 3,
		TimeoutSeconds: 1800,
	}}

	task, err := ResolveTask(cfg, "fix the bug", "/repo", Overrides{
		Retries:       5,
		Timeout:       time.Minute,
		MergeStrategy: "merge",
	})
	if err != nil {
		t.Fatalf("ResolveTask: %v", err)
	}
	if task.MaxRetries != 5 {
		t.Errorf("retries = %d, want override 5", task.MaxRetries)
	}
	if task.Timeout != time.Minute {
		t.Errorf("timeout = %v, want 1m", task.Timeout)
	}
	if task.MergeStrategy != "merge" {
		t.Errorf("strategy = %q, want merge", task.MergeStrategy)
	}
	if task.VerifyCommand != "make test" {
		t.Errorf("verify = %q, config value should survive", task.VerifyCommand)
	}
	if task.ID == "" {
		t.Error("task ID should be generated")
	}
}

func TestResolveTaskRejectsEmptyDirective(t *testing.T) {
	cfg := &Config{Wiggum: Wiggum{AgentCommand: "agent {{brief}}", MergeStrategy: "squash", DefaultRetries: 3}}
	if _, err := ResolveTask(cfg, "  ", "/repo", Overrides{}); err == nil {
		t.Fatal("expected error for empty directive")
	}
}

func TestResolveTaskRequiresAgentCommand(t *testing.T) {
	cfg := &Config{Wiggum: Wiggum{MergeStrategy: "squash", DefaultRetries: 3}}
	if _, err := ResolveTask(cfg, "do things", "/repo", Overrides{}); err == nil {
		t.Fatal("expected error for missing agent command")
	}
}

func TestGenerateTaskID(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 30, 0, 0, time.UTC)

	id := GenerateTaskID("Fix the flaky TestFoo!", now)
	if id != "fix-the-flaky-testfoo-20260828-123000" {
		t.Errorf("id = %q", id)
	}

	long := GenerateTaskID(strings.Repeat("very long directive ", 10), now)
	if len(long) > 40+1+15+1 {
		t.Errorf("id too long: %q (%d chars)", long, len(long))
	}

	empty := GenerateTaskID("!!!", now)
	if !strings.HasPrefix(empty, "task-") {
		t.Errorf("fallback id = %q, want task- prefix", empty)
	}
}
