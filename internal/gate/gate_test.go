package gate

import (
	"context"
	"strings"
	"testing"
	"time"
)

type fakeRunner struct {
	commands []string
	stdout   string
	stderr   string
	exitCode int
	err      error
	delay    time.Duration

	// killedBySignal mimics ExecRunner after a deadline kill: the delay
	// runs out the context, then the call returns the signal exit code
	// with a nil error instead of surfacing ctx.Err().
	killedBySignal bool
}

func (f *fakeRunner) Run(ctx context.Context, dir string, command string) (string, string, int, error) {
	f.commands = append(f.commands, command)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			if f.killedBySignal {
				return f.stdout, f.stderr, -1, nil
			}
			return "", "", -1, ctx.Err()
		}
	}
	return f.stdout, f.stderr, f.exitCode, f.err
}

func TestVerifyPass(t *testing.T) {
	runner := &fakeRunner{stdout: "ok\n"}
	g := NewGate(runner, 4096, 0)

	res, err := g.Verify("/ws", "make test")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Passed || res.Skipped {
		t.Errorf("result = %+v, want passed", res)
	}
	if res.Output != "ok\n" {
		t.Errorf("output = %q", res.Output)
	}
	if len(runner.commands) != 1 || runner.commands[0] != "make test" {
		t.Errorf("commands = %v", runner.commands)
	}
}

func TestVerifyFailCapturesOutput(t *testing.T) {
	runner := &fakeRunner{stdout: "running\n", stderr: "FAIL: TestThing\n", exitCode: 2}
	g := NewGate(runner, 4096, 0)

	res, err := g.Verify("/ws", "make test")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Passed {
		t.Error("exit code 2 must fail")
	}
	if res.ExitCode != 2 {
		t.Errorf("exit code = %d", res.ExitCode)
	}
	if !strings.Contains(res.Output, "FAIL: TestThing") {
		t.Errorf("output = %q", res.Output)
	}
}

func TestVerifyEmptyCommandSkips(t *testing.T) {
	runner := &fakeRunner{}
	g := NewGate(runner, 4096, 0)

	res, err := g.Verify("/ws", "   ")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Passed || !res.Skipped {
		t.Errorf("result = %+v, want skipped pass", res)
	}
	if len(runner.commands) != 0 {
		t.Error("no command should run when verify is unset")
	}
}

func TestVerifyTimeout(t *testing.T) {
	runner := &fakeRunner{delay: time.Second}
	g := NewGate(runner, 4096, 10*time.Millisecond)

	res, err := g.Verify("/ws", "sleep 60")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Passed {
		t.Error("timed out verification must fail")
	}
	if !strings.Contains(res.Output, "timed out") {
		t.Errorf("output = %q", res.Output)
	}
}

func TestVerifyTimeoutAfterSignalKill(t *testing.T) {
	runner := &fakeRunner{delay: time.Second, killedBySignal: true, stdout: "partial output\n"}
	g := NewGate(runner, 4096, 10*time.Millisecond)

	res, err := g.Verify("/ws", "make test")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Passed {
		t.Error("timed out verification must fail")
	}
	if res.ExitCode != -1 {
		t.Errorf("exit code = %d, want -1", res.ExitCode)
	}
	if !strings.Contains(res.Output, "timed out") {
		t.Errorf("output = %q, must name the timeout, not just the exit code", res.Output)
	}
	if !strings.Contains(res.Output, "partial output") {
		t.Errorf("output = %q, captured output must survive", res.Output)
	}
}

func TestTruncateKeepsTail(t *testing.T) {
	long := strings.Repeat("x", 100) + "VERDICT"
	got := Truncate(long, 20)
	if !strings.HasSuffix(got, "VERDICT") {
		t.Errorf("tail lost: %q", got)
	}
	if !strings.HasPrefix(got, "...") {
		t.Errorf("missing truncation marker: %q", got)
	}
	if len(got) != 23 {
		t.Errorf("len = %d, want 23", len(got))
	}
}

func TestTruncateNoOpWhenSmall(t *testing.T) {
	if got := Truncate("short", 100); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("anything", 0); got != "anything" {
		t.Errorf("zero max must disable truncation, got %q", got)
	}
}
