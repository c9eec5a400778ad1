package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Store manages task-line state on disk. Layout under baseDir:
//
//	tasks/<task-id>/task.json                immutable task definition
//	tasks/<task-id>/history.json             append-only attempt history
//	tasks/<task-id>/attempts/attempt-N/      per-attempt artifacts
type Store struct {
	baseDir string
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// DefaultStore returns a Store at ~/.wiggum, creating the directory if needed.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".wiggum")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// TaskDir returns the directory for a task line.
func (s *Store) TaskDir(taskID string) string {
	return filepath.Join(s.baseDir, "tasks", taskID)
}

func (s *Store) taskPath(taskID string) string {
	return filepath.Join(s.TaskDir(taskID), "task.json")
}

func (s *Store) historyPath(taskID string) string {
	return filepath.Join(s.TaskDir(taskID), "history.json")
}

// AttemptDir returns the artifact directory for one attempt.
func (s *Store) AttemptDir(taskID string, attempt int) string {
	return filepath.Join(s.TaskDir(taskID), "attempts", fmt.Sprintf("attempt-%d", attempt))
}

// CreateTask persists the immutable task definition. A task line may be
// resumed after a crash, so an existing task.json with the same ID is not
// an error — the stored record wins and is returned.
func (s *Store) CreateTask(rec *TaskRecord) (*TaskRecord, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("task id must not be empty")
	}
	path := s.taskPath(rec.ID)
	if _, err := os.Stat(path); err == nil {
		var existing TaskRecord
		if err := ReadJSON(path, &existing); err != nil {
			return nil, fmt.Errorf("read existing task: %w", err)
		}
		return &existing, nil
	}

	rec.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := WriteJSON(path, rec); err != nil {
		return nil, fmt.Errorf("write task.json: %w", err)
	}
	return rec, nil
}

// GetTask reads a task definition.
func (s *Store) GetTask(taskID string) (*TaskRecord, error) {
	var rec TaskRecord
	if err := ReadJSON(s.taskPath(taskID), &rec); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("task %q not found", taskID)
		}
		return nil, err
	}
	return &rec, nil
}

// ListTasks returns all known task IDs, sorted.
func (s *Store) ListTasks() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, "tasks"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tasks dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// AppendAttempt appends a finalized attempt to history.json. The write is
// atomic read-modify-rename; failure here is fatal to the run because the
// failed-hash set underlies cycle detection.
func (s *Store) AppendAttempt(taskID string, rec AttemptRecord) error {
	h, err := s.readHistory(taskID)
	if err != nil {
		return err
	}
	h.Task = taskID
	h.Attempts = append(h.Attempts, rec)
	if rec.Outcome.Failed() && rec.Hash != "" {
		if !containsString(h.FailedHashes, rec.Hash) {
			h.FailedHashes = append(h.FailedHashes, rec.Hash)
		}
	}
	h.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := WriteJSON(s.historyPath(taskID), h); err != nil {
		return fmt.Errorf("write history.json: %w", err)
	}
	return nil
}

// History returns an immutable snapshot of the attempt history. A missing
// history.json is an empty history, not an error.
func (s *Store) History(taskID string) (HistorySnapshot, error) {
	h, err := s.readHistory(taskID)
	if err != nil {
		return HistorySnapshot{}, err
	}
	snap := HistorySnapshot{
		Attempts:     append([]AttemptRecord(nil), h.Attempts...),
		FailedHashes: make(map[string]bool, len(h.FailedHashes)),
	}
	for _, hash := range h.FailedHashes {
		snap.FailedHashes[hash] = true
	}
	return snap, nil
}

func (s *Store) readHistory(taskID string) (*historyFile, error) {
	var h historyFile
	if err := ReadJSON(s.historyPath(taskID), &h); err != nil {
		if os.IsNotExist(err) {
			return &historyFile{Task: taskID}, nil
		}
		return nil, err
	}
	return &h, nil
}

// SaveBrief keeps a copy of the rendered mission brief for an attempt.
// Best-effort diagnostic artifact; the authoritative copy lives in the
// workspace for the agent to read.
func (s *Store) SaveBrief(taskID string, attempt int, brief string) error {
	return WriteAtomic(filepath.Join(s.AttemptDir(taskID, attempt), "brief.md"), []byte(brief))
}

// SaveVerifyLog writes the bounded verification output for an attempt.
func (s *Store) SaveVerifyLog(taskID string, attempt int, output string) error {
	return WriteAtomic(filepath.Join(s.AttemptDir(taskID, attempt), "verify.log"), []byte(output))
}

// GetVerifyLog reads the verification output for an attempt.
func (s *Store) GetVerifyLog(taskID string, attempt int) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.AttemptDir(taskID, attempt), "verify.log"))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
