package store

// Outcome classifies how an attempt (or a whole run) ended.
type Outcome string

const (
	OutcomePending       Outcome = "pending"
	OutcomeSpawnFailed   Outcome = "spawn_failed"
	OutcomeTimedOut      Outcome = "timed_out"
	OutcomeEmptyChange   Outcome = "empty_change"
	OutcomeCycleDetected Outcome = "cycle_detected"
	OutcomeVerifyFailed  Outcome = "verify_failed"
	OutcomeMergeConflict Outcome = "merge_conflict"
	OutcomeSuccess       Outcome = "success"
)

// Failed reports whether the outcome counts as a failed attempt whose
// change-set is proven broken. A merge conflict is excluded: the change
// passed verification, and the conflict came from baseline drift rather
// than the change itself, so its hash must not poison cycle detection.
// Pending attempts are in flight and count as neither.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeSpawnFailed, OutcomeTimedOut, OutcomeEmptyChange, OutcomeCycleDetected, OutcomeVerifyFailed:
		return true
	}
	return false
}

// TaskRecord is the immutable task definition persisted as task.json.
type TaskRecord struct {
	ID             string   `json:"id"`
	Directive      string   `json:"directive"`
	AgentCommand   string   `json:"agent_command"`
	VerifyCommand  string   `json:"verify_command,omitempty"`
	MergeStrategy  string   `json:"merge_strategy"`
	ProtectedPaths []string `json:"protected_paths,omitempty"`
	MaxRetries     int      `json:"max_retries"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	Baseline       string   `json:"baseline"`
	CreatedAt      string   `json:"created_at"`
}

// AttemptRecord is one finalized attempt in history.json.
type AttemptRecord struct {
	Attempt   int     `json:"attempt"`
	Workspace string  `json:"workspace,omitempty"`
	Branch    string  `json:"branch,omitempty"`
	StartedAt string  `json:"started_at"`
	EndedAt   string  `json:"ended_at"`
	Outcome   Outcome `json:"outcome"`
	Hash      string  `json:"hash,omitempty"`
	Excerpt   string  `json:"excerpt,omitempty"`
}

// historyFile is the on-disk shape of history.json.
type historyFile struct {
	Task         string          `json:"task"`
	Attempts     []AttemptRecord `json:"attempts"`
	FailedHashes []string        `json:"failed_hashes"`
	UpdatedAt    string          `json:"updated_at"`
}

// HistorySnapshot is an immutable view of the attempt history.
type HistorySnapshot struct {
	Attempts     []AttemptRecord
	FailedHashes map[string]bool
}

// Len returns the number of finalized attempts.
func (s HistorySnapshot) Len() int { return len(s.Attempts) }
