// Package merge integrates a verified attempt back into the baseline.
// The strategy is selected per task, not per attempt. A conflict is a
// terminal condition for the whole run: it is surfaced, never retried,
// and the baseline is left clean with the attempt branch preserved for
// manual resolution.
package merge

import (
	"errors"
	"fmt"
	"strings"

	"wiggum/internal/sandbox"
)

// Strategy selects how a success is integrated.
type Strategy string

const (
	// StrategySquash collapses the attempt into one integration commit.
	StrategySquash Strategy = "squash"
	// StrategyMerge preserves the attempt's history with a merge commit.
	StrategyMerge Strategy = "merge"
	// StrategyRebase replays the attempt atop the baseline tip, then
	// fast-forwards the baseline.
	StrategyRebase Strategy = "rebase"
)

// ErrConflict is returned when integration hits a conflict requiring
// external resolution.
var ErrConflict = errors.New("merge conflict")

// Resolver integrates attempt branches into one baseline repository.
type Resolver struct {
	git      sandbox.GitRunner
	baseline string
}

// NewResolver creates a Resolver for the given baseline repo root.
func NewResolver(git sandbox.GitRunner, baseline string) *Resolver {
	return &Resolver{git: git, baseline: baseline}
}

// Resolve integrates the workspace's branch into the baseline using the
// given strategy. On conflict it rolls the baseline back to a clean
// state and returns an error wrapping ErrConflict.
func (r *Resolver) Resolve(ws *sandbox.Workspace, strategy Strategy, message string) error {
	switch strategy {
	case StrategySquash:
		return r.squash(ws, message)
	case StrategyMerge:
		return r.merge(ws, message)
	case StrategyRebase:
		return r.rebase(ws)
	default:
		return fmt.Errorf("unknown merge strategy %q", strategy)
	}
}

func (r *Resolver) squash(ws *sandbox.Workspace, message string) error {
	if out, err := r.git.Run(r.baseline, "merge", "--squash", ws.Branch); err != nil {
		_, _ = r.git.Run(r.baseline, "reset", "--merge")
		return classify(ws, out, err)
	}
	if _, err := r.git.Run(r.baseline, "commit", "-m", message); err != nil {
		return fmt.Errorf("commit squashed change: %w", err)
	}
	return nil
}

func (r *Resolver) merge(ws *sandbox.Workspace, message string) error {
	if out, err := r.git.Run(r.baseline, "merge", "--no-ff", "-m", message, ws.Branch); err != nil {
		_, _ = r.git.Run(r.baseline, "merge", "--abort")
		return classify(ws, out, err)
	}
	return nil
}

func (r *Resolver) rebase(ws *sandbox.Workspace) error {
	tip, err := r.git.Run(r.baseline, "rev-parse", "HEAD")
	if err != nil {
		return fmt.Errorf("resolve baseline tip: %w", err)
	}
	if out, err := r.git.Run(ws.Path, "rebase", tip); err != nil {
		_, _ = r.git.Run(ws.Path, "rebase", "--abort")
		return classify(ws, out, err)
	}
	if out, err := r.git.Run(r.baseline, "merge", "--ff-only", ws.Branch); err != nil {
		return classify(ws, out, err)
	}
	return nil
}

// classify distinguishes a content conflict from infrastructure failure.
func classify(ws *sandbox.Workspace, out string, err error) error {
	text := out + err.Error()
	if strings.Contains(text, "CONFLICT") ||
		strings.Contains(text, "Automatic merge failed") ||
		strings.Contains(text, "could not apply") ||
		strings.Contains(text, "Not possible to fast-forward") {
		return fmt.Errorf("integrating branch %s: %w", ws.Branch, ErrConflict)
	}
	return fmt.Errorf("integrating branch %s: %w", ws.Branch, err)
}
