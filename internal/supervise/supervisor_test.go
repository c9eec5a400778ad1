package supervise

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeTmux simulates sessions. completeOnStart drops the sentinel the
// moment the session starts, as a real agent wrapper would on exit.
type fakeTmux struct {
	mu              sync.Mutex
	sessions        map[string]bool
	started         []string
	killed          []string
	completeOnStart bool
}

func newFakeTmux() *fakeTmux {
	return &fakeTmux{sessions: make(map[string]bool)}
}

func (f *fakeTmux) NewSession(name, dir, command string) error {
	f.mu.Lock()
	f.sessions[name] = true
	f.started = append(f.started, command)
	f.mu.Unlock()
	if f.completeOnStart {
		if err := os.MkdirAll(filepath.Join(dir, ".wiggum"), 0o755); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, ".wiggum", SentinelName), nil, 0o644)
	}
	return nil
}

func (f *fakeTmux) KillSession(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, name)
	f.killed = append(f.killed, name)
	return nil
}

func (f *fakeTmux) HasSession(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[name], nil
}

func (f *fakeTmux) endSession(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, name)
}

func (f *fakeTmux) ListSessions() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for n := range f.sessions {
		names = append(names, n)
	}
	return names, nil
}

func testOpts(dir string, timeout time.Duration) RunOpts {
	return RunOpts{
		SessionName:  "wiggum-t-1",
		WorkspaceDir: dir,
		BriefPath:    filepath.Join(dir, ".wiggum", "brief.md"),
		AgentCommand: "agent --brief {{brief}}",
		Timeout:      timeout,
	}
}

func TestRunCompletes(t *testing.T) {
	tmux := newFakeTmux()
	tmux.completeOnStart = true
	s := NewSupervisor(tmux, time.Millisecond, 0)

	res, err := s.Run(testOpts(t.TempDir(), time.Second))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Errorf("status = %v, want completed", res.Status)
	}
}

func TestRunTimesOutAndKills(t *testing.T) {
	tmux := newFakeTmux()
	s := NewSupervisor(tmux, time.Millisecond, 0)

	res, err := s.Run(testOpts(t.TempDir(), 20*time.Millisecond))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != StatusTimedOut {
		t.Errorf("status = %v, want timed_out", res.Status)
	}
	if len(tmux.killed) != 1 {
		t.Errorf("killed = %v, want the session killed once", tmux.killed)
	}
}

func TestRunBootDelayDoesNotConsumeTimeout(t *testing.T) {
	tmux := newFakeTmux()
	s := NewSupervisor(tmux, time.Millisecond, 30*time.Millisecond)

	// With a boot delay longer than the timeout, a hanging session must
	// still get the full timeout after the delay before being killed.
	res, err := s.Run(testOpts(t.TempDir(), 25*time.Millisecond))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != StatusTimedOut {
		t.Fatalf("status = %v, want timed_out", res.Status)
	}
	if res.Elapsed < 55*time.Millisecond {
		t.Errorf("elapsed = %v, deadline must start after the boot delay", res.Elapsed)
	}
}

func TestRunVanishedSessionIsCompleted(t *testing.T) {
	tmux := newFakeTmux()
	s := NewSupervisor(tmux, time.Millisecond, 0)

	dir := t.TempDir()
	done := make(chan struct{})
	go func() {
		time.Sleep(5 * time.Millisecond)
		tmux.endSession("wiggum-t-1")
		close(done)
	}()

	res, err := s.Run(testOpts(dir, time.Second))
	<-done
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Errorf("status = %v, want completed", res.Status)
	}
}

func TestRunWrapsCommandWithSentinel(t *testing.T) {
	tmux := newFakeTmux()
	tmux.completeOnStart = true
	s := NewSupervisor(tmux, time.Millisecond, 0)

	dir := t.TempDir()
	if _, err := s.Run(testOpts(dir, time.Second)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(tmux.started) != 1 {
		t.Fatalf("started = %v", tmux.started)
	}
	cmd := tmux.started[0]
	if !strings.Contains(cmd, "touch ") || !strings.Contains(cmd, SentinelName) {
		t.Errorf("command not wrapped with sentinel: %q", cmd)
	}
	if strings.Contains(cmd, "{{brief}}") {
		t.Errorf("brief placeholder not expanded: %q", cmd)
	}
}

func TestRunRemovesStaleSentinel(t *testing.T) {
	tmux := newFakeTmux()
	s := NewSupervisor(tmux, time.Millisecond, 0)

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".wiggum"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".wiggum", SentinelName), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	// With the stale sentinel removed up front, the run must reach its
	// timeout instead of completing instantly.
	res, err := s.Run(testOpts(dir, 15*time.Millisecond))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != StatusTimedOut {
		t.Errorf("status = %v, want timed_out (stale sentinel should not count)", res.Status)
	}
}

func TestRunRejectsMissingTimeout(t *testing.T) {
	s := NewSupervisor(newFakeTmux(), time.Millisecond, 0)
	if _, err := s.Run(testOpts(t.TempDir(), 0)); err == nil {
		t.Fatal("expected error for zero timeout")
	}
}

func TestExpandAgentCommand(t *testing.T) {
	got, err := expandAgentCommand("agent --brief {{brief}} --dir {{workspace}}", "/ws/.wiggum/brief.md", "/ws")
	if err != nil {
		t.Fatalf("expandAgentCommand: %v", err)
	}
	if got != "agent --brief /ws/.wiggum/brief.md --dir /ws" {
		t.Errorf("got %q", got)
	}
}

func TestExpandAgentCommandRequiresBrief(t *testing.T) {
	if _, err := expandAgentCommand("agent --yolo", "/b", "/w"); err == nil {
		t.Fatal("expected error when {{brief}} is absent")
	}
}

func TestShellQuote(t *testing.T) {
	if got := shellQuote("/plain/path-1.md"); got != "/plain/path-1.md" {
		t.Errorf("safe string quoted: %q", got)
	}
	if got := shellQuote("has space"); got != "'has space'" {
		t.Errorf("got %q", got)
	}
	if got := shellQuote("it's"); got != `'it'\''s'` {
		t.Errorf("got %q", got)
	}
}
