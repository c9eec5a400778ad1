package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateTaskAndGet(t *testing.T) {
	s := NewStore(t.TempDir())

	rec, err := s.CreateTask(&TaskRecord{
		ID:         "fix-bug-20260101-000000",
		Directive:  "fix the bug",
		MaxRetries: 3,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if rec.CreatedAt == "" {
		t.Error("expected CreatedAt to be set")
	}

	got, err := s.GetTask("fix-bug-20260101-000000")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Directive != "fix the bug" {
		t.Errorf("directive = %q, want %q", got.Directive, "fix the bug")
	}
}

func TestCreateTaskResumesExisting(t *testing.T) {
	s := NewStore(t.TempDir())

	first, err := s.CreateTask(&TaskRecord{ID: "t1", Directive: "original", MaxRetries: 3})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	// A second create with the same ID must return the stored record, not
	// overwrite it.
	second, err := s.CreateTask(&TaskRecord{ID: "t1", Directive: "changed", MaxRetries: 9})
	if err != nil {
		t.Fatalf("CreateTask (resume): %v", err)
	}
	if second.Directive != "original" {
		t.Errorf("resumed directive = %q, want %q", second.Directive, "original")
	}
	if second.CreatedAt != first.CreatedAt {
		t.Errorf("resumed CreatedAt changed: %q vs %q", second.CreatedAt, first.CreatedAt)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	s := NewStore(t.TempDir())
	if _, err := s.GetTask("nope"); err == nil {
		t.Fatal("expected error for missing task")
	}
}

func TestAppendAttemptRecordsFailedHashes(t *testing.T) {
	s := NewStore(t.TempDir())

	attempts := []AttemptRecord{
		{Attempt: 1, Outcome: OutcomeVerifyFailed, Hash: "aaa"},
		{Attempt: 2, Outcome: OutcomeTimedOut},
		{Attempt: 3, Outcome: OutcomeVerifyFailed, Hash: "aaa"}, // duplicate
		{Attempt: 4, Outcome: OutcomeVerifyFailed, Hash: "bbb"},
		{Attempt: 5, Outcome: OutcomeSuccess, Hash: "ccc"},
	}
	for _, a := range attempts {
		if err := s.AppendAttempt("t1", a); err != nil {
			t.Fatalf("AppendAttempt %d: %v", a.Attempt, err)
		}
	}

	snap, err := s.History("t1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if snap.Len() != 5 {
		t.Errorf("attempt count = %d, want 5", snap.Len())
	}
	if len(snap.FailedHashes) != 2 {
		t.Errorf("failed hashes = %v, want {aaa, bbb}", snap.FailedHashes)
	}
	if !snap.FailedHashes["aaa"] || !snap.FailedHashes["bbb"] {
		t.Errorf("failed hashes = %v, want aaa and bbb", snap.FailedHashes)
	}
	if snap.FailedHashes["ccc"] {
		t.Error("success hash must never enter the failed set")
	}
}

func TestMergeConflictHashNotRecorded(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.AppendAttempt("t1", AttemptRecord{Attempt: 1, Outcome: OutcomeMergeConflict, Hash: "ddd"}); err != nil {
		t.Fatalf("AppendAttempt: %v", err)
	}
	snap, err := s.History("t1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if snap.FailedHashes["ddd"] {
		t.Error("merge conflict hash must not enter the failed set")
	}
}

func TestHistoryEmptyWhenMissing(t *testing.T) {
	s := NewStore(t.TempDir())
	snap, err := s.History("never-ran")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if snap.Len() != 0 || len(snap.FailedHashes) != 0 {
		t.Errorf("expected empty history, got %+v", snap)
	}
}

func TestListTasks(t *testing.T) {
	s := NewStore(t.TempDir())

	ids, err := s.ListTasks()
	if err != nil {
		t.Fatalf("ListTasks (empty): %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no tasks, got %v", ids)
	}

	for _, id := range []string{"b-task", "a-task"} {
		if _, err := s.CreateTask(&TaskRecord{ID: id, Directive: "x"}); err != nil {
			t.Fatalf("CreateTask %s: %v", id, err)
		}
	}
	ids, err = s.ListTasks()
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a-task" || ids[1] != "b-task" {
		t.Errorf("ids = %v, want sorted [a-task b-task]", ids)
	}
}

func TestVerifyLogRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	if err := s.SaveVerifyLog("t1", 2, "FAIL: TestThing\n"); err != nil {
		t.Fatalf("SaveVerifyLog: %v", err)
	}
	out, err := s.GetVerifyLog("t1", 2)
	if err != nil {
		t.Fatalf("GetVerifyLog: %v", err)
	}
	if out != "FAIL: TestThing\n" {
		t.Errorf("log = %q", out)
	}
}

func TestWriteAtomicCreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "file.txt")
	if err := WriteAtomic(path, []byte("hi")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hi" {
		t.Errorf("content = %q", data)
	}
}

func TestReadJSONMissingIsNotExist(t *testing.T) {
	var v struct{}
	err := ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &v)
	if !os.IsNotExist(err) {
		t.Errorf("expected os.IsNotExist error, got %v", err)
	}
}
