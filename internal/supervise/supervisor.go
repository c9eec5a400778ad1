// Package supervise runs the external agent for one attempt: it starts
// the agent command in a detached tmux session rooted at the workspace,
// polls for a completion sentinel the wrapped command drops on exit, and
// forcibly kills the session when the wall-clock timeout elapses. No
// output is captured from the agent — only the workspace's resulting
// file state matters to the rest of the controller.
package supervise

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// SentinelName is the completion marker dropped in the workspace's
// .wiggum directory when the agent command exits.
const SentinelName = "done"

// Status is the supervision outcome.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusTimedOut  Status = "timed_out"
)

// Result describes how an agent session ended.
type Result struct {
	Status  Status
	Elapsed time.Duration
}

// RunOpts configures one supervised agent run.
type RunOpts struct {
	SessionName  string
	WorkspaceDir string
	BriefPath    string
	AgentCommand string // template; {{brief}} and {{workspace}} are expanded
	Timeout      time.Duration
}

// Supervisor drives agent sessions through a TmuxRunner.
type Supervisor struct {
	tmux         TmuxRunner
	pollInterval time.Duration
	bootDelay    time.Duration
}

// NewSupervisor creates a Supervisor with the given poll interval and
// boot delay. The boot delay gives the session one uncounted beat to
// start before the first sentinel check.
func NewSupervisor(tmux TmuxRunner, pollInterval, bootDelay time.Duration) *Supervisor {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &Supervisor{tmux: tmux, pollInterval: pollInterval, bootDelay: bootDelay}
}

// SetPollInterval overrides the poll interval (for testing).
func (s *Supervisor) SetPollInterval(d time.Duration) { s.pollInterval = d }

// Run executes the agent and blocks until it completes or times out.
// On timeout the session is killed immediately — no grace period.
func (s *Supervisor) Run(opts RunOpts) (*Result, error) {
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}

	sentinel := filepath.Join(opts.WorkspaceDir, ".wiggum", SentinelName)
	if err := os.MkdirAll(filepath.Dir(sentinel), 0o755); err != nil {
		return nil, fmt.Errorf("prepare sentinel dir: %w", err)
	}
	// A stale sentinel from a recycled workspace would end the run
	// instantly; there should never be one, but remove it anyway.
	os.Remove(sentinel)

	command, err := expandAgentCommand(opts.AgentCommand, opts.BriefPath, opts.WorkspaceDir)
	if err != nil {
		return nil, err
	}
	wrapped := fmt.Sprintf("%s; touch %s", command, shellQuote(sentinel))

	if err := s.tmux.NewSession(opts.SessionName, opts.WorkspaceDir, wrapped); err != nil {
		return nil, fmt.Errorf("start agent session: %w", err)
	}

	start := time.Now()

	// The boot delay gives the session time to start before the first
	// sentinel check and does not count against the timeout.
	if s.bootDelay > 0 {
		time.Sleep(s.bootDelay)
	}
	deadline := time.Now().Add(opts.Timeout)

	for {
		if _, err := os.Stat(sentinel); err == nil {
			// Agent process exited. The session shell is gone with it, but
			// kill defensively in case the command forked something.
			_ = s.tmux.KillSession(opts.SessionName)
			return &Result{Status: StatusCompleted, Elapsed: time.Since(start)}, nil
		}

		// A vanished session without a sentinel means the agent died
		// before its wrapper could run (e.g. tmux server restart). The
		// workspace state is still all that matters: treat as completed.
		if alive, err := s.tmux.HasSession(opts.SessionName); err == nil && !alive {
			return &Result{Status: StatusCompleted, Elapsed: time.Since(start)}, nil
		}

		if time.Now().After(deadline) {
			_ = s.tmux.KillSession(opts.SessionName)
			return &Result{Status: StatusTimedOut, Elapsed: time.Since(start)}, nil
		}

		time.Sleep(s.pollInterval)
	}
}

// expandAgentCommand substitutes {{brief}} and {{workspace}} in the
// agent command template. {{brief}} is required — an agent that never
// sees the brief cannot act on it.
func expandAgentCommand(tmpl string, briefPath string, workspace string) (string, error) {
	if !strings.Contains(tmpl, "{{brief}}") {
		return "", fmt.Errorf("agent command template must reference {{brief}}")
	}
	out := strings.ReplaceAll(tmpl, "{{brief}}", shellQuote(briefPath))
	out = strings.ReplaceAll(out, "{{workspace}}", shellQuote(workspace))
	return out, nil
}

var shellSafe = regexp.MustCompile(`^[a-zA-Z0-9_@%+=:,./-]+$`)

// shellQuote single-quotes a string for sh unless it is already safe.
func shellQuote(s string) string {
	if shellSafe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
