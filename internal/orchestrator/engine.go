// Package orchestrator drives the bounded retry loop for one task line:
// spawn a workspace, brief the agent, supervise execution, classify the
// change-set, verify, and either integrate the first success or abort the
// attempt and fold its failure into the wisdom ledger. At most one
// workspace is live at any time; an attempt is fully finalized (wisdom
// appended, history appended, workspace destroyed) before the next one
// spawns.
package orchestrator

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"wiggum/internal/brief"
	"wiggum/internal/config"
	"wiggum/internal/cycle"
	"wiggum/internal/db"
	"wiggum/internal/gate"
	"wiggum/internal/merge"
	"wiggum/internal/sandbox"
	"wiggum/internal/store"
	"wiggum/internal/supervise"
	"wiggum/internal/wisdom"
)

// RunStatus is the terminal state of a whole run.
type RunStatus string

const (
	// RunSuccess means an attempt passed verification and was merged.
	RunSuccess RunStatus = "success"
	// RunRetriesExhausted means every budgeted attempt failed.
	RunRetriesExhausted RunStatus = "retries_exhausted"
	// RunMergeConflict means a verified attempt could not be integrated.
	// The attempt branch is preserved for manual resolution.
	RunMergeConflict RunStatus = "merge_conflict"
)

// RunResult summarizes a finished run.
type RunResult struct {
	Status   RunStatus
	Attempts int
	Branch   string // set on success and on merge conflict
	Message  string
}

// Engine composes the per-attempt components into the retry loop.
type Engine struct {
	task       *config.Task
	store      *store.Store
	ledger     *wisdom.Ledger
	sandboxes  *sandbox.Manager
	briefs     *brief.Builder
	supervisor *supervise.Supervisor
	gate       *gate.Gate
	resolver   *merge.Resolver
	events     *db.DB // optional telemetry, may be nil
	log        io.Writer
}

// NewEngine wires an Engine for one task. events may be nil; log may be
// nil to discard progress output.
func NewEngine(
	task *config.Task,
	st *store.Store,
	ledger *wisdom.Ledger,
	sandboxes *sandbox.Manager,
	briefs *brief.Builder,
	supervisor *supervise.Supervisor,
	g *gate.Gate,
	resolver *merge.Resolver,
	events *db.DB,
	log io.Writer,
) *Engine {
	if log == nil {
		log = io.Discard
	}
	return &Engine{
		task:       task,
		store:      st,
		ledger:     ledger,
		sandboxes:  sandboxes,
		briefs:     briefs,
		supervisor: supervisor,
		gate:       g,
		resolver:   resolver,
		events:     events,
		log:        log,
	}
}

func (e *Engine) logf(format string, args ...interface{}) {
	fmt.Fprintf(e.log, format+"\n", args...)
}

func (e *Engine) event(attempt int, event, outcome, detail string) {
	if e.events != nil {
		_ = e.events.LogAttemptEvent(e.task.ID, attempt, event, outcome, detail)
	}
}

// Run executes attempts until one succeeds, the retry budget is spent, or
// a merge conflict ends the run. It resumes from persisted history: a
// restart continues counting where the previous process stopped.
func (e *Engine) Run() (*RunResult, error) {
	history, err := e.store.History(e.task.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	for _, a := range history.Attempts {
		if a.Outcome == store.OutcomeSuccess {
			return &RunResult{
				Status:   RunSuccess,
				Attempts: history.Len(),
				Branch:   a.Branch,
				Message:  "task already succeeded",
			}, nil
		}
	}

	failedHashes := history.FailedHashes
	if failedHashes == nil {
		failedHashes = make(map[string]bool)
	}

	for attempt := history.Len() + 1; attempt <= e.task.MaxRetries; attempt++ {
		e.logf("attempt %d/%d", attempt, e.task.MaxRetries)

		res, err := e.runAttempt(attempt, failedHashes)
		if err != nil {
			return nil, err
		}

		switch res.Outcome {
		case store.OutcomeSuccess:
			e.event(attempt, "run_finished", string(RunSuccess), "")
			return &RunResult{
				Status:   RunSuccess,
				Attempts: attempt,
				Branch:   res.Branch,
				Message:  fmt.Sprintf("attempt %d verified and merged", attempt),
			}, nil
		default:
			if res.Hash != "" && res.Outcome.Failed() {
				failedHashes[res.Hash] = true
			}
			if res.Conflict {
				e.event(attempt, "run_finished", string(RunMergeConflict), res.Branch)
				return &RunResult{
					Status:   RunMergeConflict,
					Attempts: attempt,
					Branch:   res.Branch,
					Message:  fmt.Sprintf("merge conflict; branch %s preserved for manual resolution", res.Branch),
				}, nil
			}
		}
	}

	e.event(e.task.MaxRetries, "run_finished", string(RunRetriesExhausted), "")
	return &RunResult{
		Status:   RunRetriesExhausted,
		Attempts: e.task.MaxRetries,
		Message:  fmt.Sprintf("all %d attempts failed", e.task.MaxRetries),
	}, nil
}

// attemptResult carries what Run needs from one finalized attempt.
type attemptResult struct {
	Outcome  store.Outcome
	Hash     string
	Branch   string
	Conflict bool
}

// runAttempt drives one attempt through its full lifecycle and finalizes
// it. Whatever the outcome, by the time it returns the attempt is in
// history and no workspace is live.
func (e *Engine) runAttempt(attempt int, failedHashes map[string]bool) (*attemptResult, error) {
	started := time.Now().UTC()

	ws, err := e.sandboxes.Create(e.task.ID, attempt)
	if err != nil {
		e.logf("  -> spawn failed: %v", err)
		e.event(attempt, "spawn_failed", "", err.Error())
		if err := e.abort(attempt, nil, started, store.OutcomeSpawnFailed, "", fmt.Sprintf("workspace creation failed: %v", err)); err != nil {
			return nil, err
		}
		return &attemptResult{Outcome: store.OutcomeSpawnFailed}, nil
	}
	e.event(attempt, "spawned", "", ws.Branch)

	briefText, err := e.composeBrief(attempt)
	if err != nil {
		// Brief composition failing is an infrastructure error, not an
		// attempt failure: the workspace is torn down and the run stops.
		_ = e.sandboxes.Destroy(ws, false)
		return nil, err
	}
	briefPath := filepath.Join(ws.Path, brief.FileName)
	if err := store.WriteAtomic(briefPath, []byte(briefText)); err != nil {
		_ = e.sandboxes.Destroy(ws, false)
		return nil, fmt.Errorf("write brief: %w", err)
	}
	_ = e.store.SaveBrief(e.task.ID, attempt, briefText)
	e.event(attempt, "briefed", "", "")

	e.logf("  -> running agent (timeout %s)", e.task.Timeout)
	supRes, err := e.supervisor.Run(supervise.RunOpts{
		SessionName:  sessionName(e.task.ID, attempt),
		WorkspaceDir: ws.Path,
		BriefPath:    briefPath,
		AgentCommand: e.task.AgentCommand,
		Timeout:      e.task.Timeout,
	})
	if err != nil {
		e.logf("  -> agent session failed: %v", err)
		e.event(attempt, "spawn_failed", "", err.Error())
		if err := e.abort(attempt, ws, started, store.OutcomeSpawnFailed, "", fmt.Sprintf("agent session failed to start: %v", err)); err != nil {
			return nil, err
		}
		return &attemptResult{Outcome: store.OutcomeSpawnFailed}, nil
	}
	e.event(attempt, "executed", string(supRes.Status), supRes.Elapsed.String())

	if supRes.Status == supervise.StatusTimedOut {
		e.logf("  -> agent timed out after %s", supRes.Elapsed.Round(time.Second))
		// A killed agent leaves a half-finished change-set; it is not
		// hashed, because the same diff produced by a finished agent
		// deserves a fresh verification.
		excerpt := fmt.Sprintf("agent killed after exceeding the %s timeout; partial work discarded", e.task.Timeout)
		if err := e.abort(attempt, ws, started, store.OutcomeTimedOut, "", excerpt); err != nil {
			return nil, err
		}
		return &attemptResult{Outcome: store.OutcomeTimedOut}, nil
	}

	if len(e.task.ProtectedPaths) > 0 {
		if err := e.sandboxes.RevertPaths(ws, e.task.ProtectedPaths); err != nil {
			_ = e.sandboxes.Destroy(ws, false)
			return nil, fmt.Errorf("revert protected paths: %w", err)
		}
	}

	hash, err := e.sandboxes.ChangeHash(ws)
	if err != nil {
		_ = e.sandboxes.Destroy(ws, false)
		return nil, fmt.Errorf("hash change-set: %w", err)
	}

	verdict := cycle.Check(hash, failedHashes)
	e.event(attempt, "classified", string(verdict), hash)
	switch verdict {
	case cycle.VerdictEmptyChange:
		e.logf("  -> agent made no changes")
		excerpt := "agent completed without modifying any files"
		if err := e.abort(attempt, ws, started, store.OutcomeEmptyChange, hash, excerpt); err != nil {
			return nil, err
		}
		return &attemptResult{Outcome: store.OutcomeEmptyChange, Hash: hash}, nil
	case cycle.VerdictCycle:
		e.logf("  -> change-set matches a previously failed attempt, skipping verification")
		excerpt := fmt.Sprintf("change-set (hash %.12s) is identical to a previously failed attempt", hash)
		if err := e.abort(attempt, ws, started, store.OutcomeCycleDetected, hash, excerpt); err != nil {
			return nil, err
		}
		return &attemptResult{Outcome: store.OutcomeCycleDetected, Hash: hash}, nil
	}

	if e.task.VerifyCommand == "" {
		e.logf("  -> no verify command configured, accepting change unverified")
	} else {
		e.logf("  -> verifying: %s", e.task.VerifyCommand)
	}
	verifyRes, err := e.gate.Verify(ws.Path, e.task.VerifyCommand)
	if err != nil {
		_ = e.sandboxes.Destroy(ws, false)
		return nil, fmt.Errorf("verification: %w", err)
	}
	if e.events != nil {
		_ = e.events.LogVerifyRun(e.task.ID, attempt, verifyRes.Passed, verifyRes.Skipped, verifyRes.ExitCode, verifyRes.Duration)
	}
	if !verifyRes.Skipped {
		_ = e.store.SaveVerifyLog(e.task.ID, attempt, verifyRes.Output)
	}
	e.event(attempt, "verified", verifyOutcome(verifyRes), "")

	if !verifyRes.Passed {
		e.logf("  -> verification failed (exit %d, %s)", verifyRes.ExitCode, verifyRes.Duration.Round(time.Millisecond))
		excerpt := fmt.Sprintf("verification failed with exit code %d:\n%s", verifyRes.ExitCode, verifyRes.Output)
		if err := e.abort(attempt, ws, started, store.OutcomeVerifyFailed, hash, excerpt); err != nil {
			return nil, err
		}
		return &attemptResult{Outcome: store.OutcomeVerifyFailed, Hash: hash}, nil
	}

	return e.integrate(attempt, ws, started, hash)
}

// integrate commits and merges a verified attempt. Success finalizes the
// attempt and ends the run; a conflict is terminal too, with the branch
// kept alive for a human.
func (e *Engine) integrate(attempt int, ws *sandbox.Workspace, started time.Time, hash string) (*attemptResult, error) {
	message := fmt.Sprintf("%s (attempt %d)", e.task.Directive, attempt)
	if err := e.sandboxes.CommitAll(ws, message); err != nil {
		_ = e.sandboxes.Destroy(ws, false)
		return nil, err
	}

	e.logf("  -> merging branch %s (%s)", ws.Branch, e.task.MergeStrategy)
	err := e.resolver.Resolve(ws, merge.Strategy(e.task.MergeStrategy), message)
	if err != nil {
		if errors.Is(err, merge.ErrConflict) {
			e.logf("  -> merge conflict, preserving branch %s", ws.Branch)
			e.event(attempt, "aborted", string(store.OutcomeMergeConflict), "merge conflict")
			excerpt := fmt.Sprintf("verified change conflicted with the baseline; branch %s preserved", ws.Branch)
			if ferr := e.ledger.Append(wisdom.Entry{
				Attempt: attempt,
				Outcome: string(store.OutcomeMergeConflict),
				Excerpt: excerpt,
			}); ferr != nil {
				_ = e.sandboxes.Destroy(ws, true)
				return nil, ferr
			}
			rec := e.record(attempt, ws, started, store.OutcomeMergeConflict, hash)
			rec.Excerpt = excerpt
			if ferr := e.appendAndDestroy(rec, ws, true); ferr != nil {
				return nil, ferr
			}
			return &attemptResult{Outcome: store.OutcomeMergeConflict, Hash: hash, Branch: ws.Branch, Conflict: true}, nil
		}
		_ = e.sandboxes.Destroy(ws, false)
		return nil, err
	}

	e.event(attempt, "resolved", string(store.OutcomeSuccess), ws.Branch)
	rec := e.record(attempt, ws, started, store.OutcomeSuccess, hash)
	if err := e.store.AppendAttempt(e.task.ID, rec); err != nil {
		return nil, err
	}
	if err := e.sandboxes.Destroy(ws, false); err != nil {
		return nil, fmt.Errorf("destroy workspace: %w", err)
	}
	e.logf("  -> success")
	return &attemptResult{Outcome: store.OutcomeSuccess, Hash: hash, Branch: ws.Branch}, nil
}

// abort runs the strict finalization order: wisdom first, then history,
// then workspace teardown. Each step must succeed before the next; a
// failure aborts the whole run rather than risk a later attempt running
// without the record of this one.
func (e *Engine) abort(attempt int, ws *sandbox.Workspace, started time.Time, outcome store.Outcome, hash, excerpt string) error {
	if err := e.ledger.Append(wisdom.Entry{
		Attempt: attempt,
		Outcome: string(outcome),
		Excerpt: excerpt,
	}); err != nil {
		if ws != nil {
			_ = e.sandboxes.Destroy(ws, false)
		}
		return err
	}

	rec := e.record(attempt, ws, started, outcome, hash)
	rec.Excerpt = excerpt
	if err := e.appendAndDestroy(rec, ws, false); err != nil {
		return err
	}
	e.event(attempt, "aborted", string(outcome), "")
	return nil
}

func (e *Engine) appendAndDestroy(rec store.AttemptRecord, ws *sandbox.Workspace, keepBranch bool) error {
	if err := e.store.AppendAttempt(e.task.ID, rec); err != nil {
		if ws != nil {
			_ = e.sandboxes.Destroy(ws, keepBranch)
		}
		return err
	}
	if ws != nil {
		if err := e.sandboxes.Destroy(ws, keepBranch); err != nil {
			return fmt.Errorf("destroy workspace: %w", err)
		}
	}
	return nil
}

func (e *Engine) record(attempt int, ws *sandbox.Workspace, started time.Time, outcome store.Outcome, hash string) store.AttemptRecord {
	rec := store.AttemptRecord{
		Attempt:   attempt,
		StartedAt: started.Format(time.RFC3339),
		EndedAt:   time.Now().UTC().Format(time.RFC3339),
		Outcome:   outcome,
		Hash:      hash,
	}
	if ws != nil {
		rec.Workspace = ws.Path
		rec.Branch = ws.Branch
	}
	return rec
}

// composeBrief renders the mission brief for an attempt from the current
// wisdom snapshot.
func (e *Engine) composeBrief(attempt int) (string, error) {
	entries, err := e.ledger.Snapshot()
	if err != nil {
		return "", fmt.Errorf("read wisdom ledger: %w", err)
	}
	return e.briefs.Build(e.task, attempt, entries)
}

func sessionName(taskID string, attempt int) string {
	return fmt.Sprintf("wiggum-%s-%d", taskID, attempt)
}

func verifyOutcome(r *gate.Result) string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Passed:
		return "passed"
	default:
		return "failed"
	}
}
