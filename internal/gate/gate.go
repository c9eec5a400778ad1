// Package gate runs the externally supplied verification command against
// a workspace and classifies the result. Exit code zero is a pass;
// anything else is a fail whose output, truncated to a bound, feeds the
// wisdom ledger.
package gate

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner abstracts command execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, dir string, command string) (stdout string, stderr string, exitCode int, err error)
}

// ExecRunner implements CommandRunner by shelling out.
type ExecRunner struct{}

func (e *ExecRunner) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return stdoutBuf.String(), stderrBuf.String(), -1, fmt.Errorf("exec: %w", err)
		}
	}
	return stdoutBuf.String(), stderrBuf.String(), exitCode, nil
}

// Result is the outcome of one verification run.
type Result struct {
	Passed   bool
	Skipped  bool // no verify command configured
	ExitCode int
	Output   string // combined stdout+stderr, truncated to the bound
	Duration time.Duration
}

// Gate verifies workspaces with a fixed command and output bound.
type Gate struct {
	runner    CommandRunner
	maxOutput int
	timeout   time.Duration
}

// NewGate creates a Gate. maxOutput bounds captured output in bytes;
// timeout bounds the verify command itself (0 means no limit beyond the
// attempt's own budget).
func NewGate(runner CommandRunner, maxOutput int, timeout time.Duration) *Gate {
	if maxOutput <= 0 {
		maxOutput = 4096
	}
	return &Gate{runner: runner, maxOutput: maxOutput, timeout: timeout}
}

// Verify runs the command in dir. An empty command is a configured
// no-op: it passes, and the caller is expected to log the reduced
// safety rather than skip silently.
func (g *Gate) Verify(dir string, command string) (*Result, error) {
	if strings.TrimSpace(command) == "" {
		return &Result{Passed: true, Skipped: true}, nil
	}

	ctx := context.Background()
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	stdout, stderr, exitCode, err := g.runner.Run(ctx, dir, command)
	elapsed := time.Since(start)

	// A deadline kill surfaces from ExecRunner as a signal exit code with
	// no error, so the context is the authority on whether time ran out.
	if ctx.Err() == context.DeadlineExceeded {
		return &Result{
			Passed:   false,
			ExitCode: -1,
			Output:   Truncate(fmt.Sprintf("verification timed out after %s\n%s%s", g.timeout, stdout, stderr), g.maxOutput),
			Duration: elapsed,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("run verify command: %w", err)
	}

	return &Result{
		Passed:   exitCode == 0,
		ExitCode: exitCode,
		Output:   Truncate(stdout+stderr, g.maxOutput),
		Duration: elapsed,
	}, nil
}

// Truncate bounds s to max bytes, keeping the tail: the end of a test
// run or build log is where the verdict lives.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
