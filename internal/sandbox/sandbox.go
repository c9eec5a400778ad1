// Package sandbox creates and destroys the isolated, disposable
// workspaces each attempt runs in. A workspace is a git worktree on its
// own branch, derived from the baseline repository's HEAD at creation
// time. At most one workspace per task line is ever live; the
// orchestrator destroys the current one before spawning the next.
package sandbox

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// BranchPrefix is the prefix for attempt branch names.
const BranchPrefix = "wiggum/"

// EmptyHash is the change hash of a workspace with no modifications
// (sha256 of zero bytes).
var EmptyHash = hashBytes(nil)

// Workspace is one live attempt workspace.
type Workspace struct {
	Path        string
	Branch      string
	TaskID      string
	Attempt     int
	BaselineRef string // commit the worktree was derived from
}

// Manager handles workspace lifecycle against one baseline repository.
type Manager struct {
	git      GitRunner
	baseline string // git repo root
	prefix   string // where workspaces are created
}

// NewManager creates a Manager. prefix may be empty, in which case
// workspaces go under <baseline>/.wiggum-sandboxes.
func NewManager(git GitRunner, baseline string, prefix string) *Manager {
	if prefix == "" {
		prefix = filepath.Join(baseline, ".wiggum-sandboxes")
	}
	return &Manager{git: git, baseline: baseline, prefix: prefix}
}

// Path returns the workspace path for an attempt.
func (m *Manager) Path(taskID string, attempt int) string {
	return filepath.Join(m.prefix, taskID, fmt.Sprintf("attempt-%d", attempt))
}

func (m *Manager) branchName(taskID string, attempt int) string {
	return sanitizeBranch(fmt.Sprintf("%s%s-%d", BranchPrefix, taskID, attempt))
}

// Create derives a new workspace and branch from the baseline's current
// HEAD. Failure here is a SpawnFailed outcome for the attempt.
func (m *Manager) Create(taskID string, attempt int) (*Workspace, error) {
	path := m.Path(taskID, attempt)
	branch := m.branchName(taskID, attempt)

	ref, err := m.git.Run(m.baseline, "rev-parse", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolve baseline ref: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir sandbox prefix: %w", err)
	}

	// A leftover branch from a crashed run is deleted rather than reused:
	// the new workspace must start at the current baseline tip.
	_, _ = m.git.Run(m.baseline, "branch", "-D", branch)

	if _, err := m.git.Run(m.baseline, "worktree", "add", path, "-b", branch, ref); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	return &Workspace{
		Path:        path,
		Branch:      branch,
		TaskID:      taskID,
		Attempt:     attempt,
		BaselineRef: ref,
	}, nil
}

// ChangeHash computes a stable, content-based hash of the workspace's
// change-set against the baseline ref it was derived from. Everything is
// staged first so untracked files count; the hash is over diff content,
// so incidental metadata (mtimes, visit order) cannot perturb it.
func (m *Manager) ChangeHash(ws *Workspace) (string, error) {
	if _, err := m.git.Run(ws.Path, "add", "-A"); err != nil {
		return "", fmt.Errorf("stage changes: %w", err)
	}
	diff, err := m.git.Run(ws.Path, "diff", "--cached", ws.BaselineRef, "--no-color", "--no-ext-diff")
	if err != nil {
		return "", fmt.Errorf("diff against baseline: %w", err)
	}
	if strings.TrimSpace(diff) == "" {
		return EmptyHash, nil
	}
	return hashBytes([]byte(diff)), nil
}

// RevertPaths restores protected paths to their baseline content inside
// the workspace. Paths the baseline does not have are removed outright.
// Applied before hashing and verification, so a protected edit can never
// influence either.
func (m *Manager) RevertPaths(ws *Workspace, paths []string) error {
	for _, p := range paths {
		if _, err := m.git.Run(ws.Path, "checkout", ws.BaselineRef, "--", p); err != nil {
			// Path absent in baseline: the agent created it, drop it.
			full := filepath.Join(ws.Path, p)
			if rmErr := os.RemoveAll(full); rmErr != nil {
				return fmt.Errorf("revert %q: %w", p, rmErr)
			}
			_, _ = m.git.Run(ws.Path, "rm", "-r", "--cached", "--ignore-unmatch", "--", p)
		}
	}
	return nil
}

// CommitAll commits the staged change-set in the workspace so it can be
// merged. Called only on the success path, after hashing.
func (m *Manager) CommitAll(ws *Workspace, message string) error {
	if _, err := m.git.Run(ws.Path, "add", "-A"); err != nil {
		return fmt.Errorf("stage changes: %w", err)
	}
	if _, err := m.git.Run(ws.Path, "commit", "--allow-empty-message", "-m", message); err != nil {
		return fmt.Errorf("commit workspace: %w", err)
	}
	return nil
}

// Destroy removes the workspace unconditionally, dirty or not. The
// worktree removal is forced, and a filesystem fallback plus prune
// handles a worktree git refuses to touch. The branch is kept only when
// keepBranch is set (used to preserve a conflicted merge for manual
// resolution).
func (m *Manager) Destroy(ws *Workspace, keepBranch bool) error {
	if _, err := m.git.Run(m.baseline, "worktree", "remove", "--force", ws.Path); err != nil {
		if rmErr := os.RemoveAll(ws.Path); rmErr != nil {
			return fmt.Errorf("force remove workspace: %w", rmErr)
		}
		_, _ = m.git.Run(m.baseline, "worktree", "prune")
	}
	if !keepBranch {
		_, _ = m.git.Run(m.baseline, "branch", "-D", ws.Branch)
	}
	return nil
}

var nonBranch = regexp.MustCompile(`[^a-zA-Z0-9/_-]+`)

// sanitizeBranch cleans up a branch name.
func sanitizeBranch(name string) string {
	s := nonBranch.ReplaceAllString(name, "-")
	s = strings.Trim(s, "-")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

func hashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
