package wisdom

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendAndSnapshot(t *testing.T) {
	l := NewLedger("t1", t.TempDir())

	entries := []Entry{
		{Attempt: 1, Outcome: "verify_failed", Excerpt: "tests failed"},
		{Attempt: 2, Outcome: "timed_out", Excerpt: "agent killed"},
		{Attempt: 3, Outcome: "empty_change", Excerpt: "no modifications"},
	}
	for _, e := range entries {
		if err := l.Append(e); err != nil {
			t.Fatalf("Append attempt %d: %v", e.Attempt, err)
		}
	}

	got, err := l.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("entry count = %d, want 3", len(got))
	}
	for i, e := range got {
		if e.Attempt != i+1 {
			t.Errorf("entry %d attempt = %d, want append order preserved", i, e.Attempt)
		}
		if e.Timestamp == "" {
			t.Errorf("entry %d missing timestamp", i)
		}
	}
}

func TestSnapshotEmptyLedger(t *testing.T) {
	l := NewLedger("t1", t.TempDir())
	got, err := l.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty snapshot, got %d entries", len(got))
	}
}

func TestAppendWritesRenderedDoc(t *testing.T) {
	dir := t.TempDir()
	l := NewLedger("t1", dir)
	if err := l.Append(Entry{Attempt: 1, Outcome: "verify_failed", Excerpt: "boom"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "wisdom.md"))
	if err != nil {
		t.Fatalf("read wisdom.md: %v", err)
	}
	if !strings.Contains(string(data), "boom") {
		t.Errorf("wisdom.md missing excerpt:\n%s", data)
	}
}

func TestRenderFullRecallByDefault(t *testing.T) {
	entries := []Entry{
		{Attempt: 1, Timestamp: "2026-01-01T00:00:00Z", Outcome: "verify_failed", Excerpt: strings.Repeat("a", 500)},
		{Attempt: 2, Timestamp: "2026-01-01T01:00:00Z", Outcome: "verify_failed", Excerpt: strings.Repeat("b", 500)},
	}
	text := Render(entries, 0)
	if !strings.Contains(text, "Attempt 1") || !strings.Contains(text, "Attempt 2") {
		t.Error("zero maxBytes must keep every entry")
	}
}

func TestRenderDropsOldestWhenBounded(t *testing.T) {
	entries := []Entry{
		{Attempt: 1, Timestamp: "2026-01-01T00:00:00Z", Outcome: "verify_failed", Excerpt: strings.Repeat("a", 300)},
		{Attempt: 2, Timestamp: "2026-01-01T01:00:00Z", Outcome: "verify_failed", Excerpt: strings.Repeat("b", 300)},
		{Attempt: 3, Timestamp: "2026-01-01T02:00:00Z", Outcome: "timed_out", Excerpt: "recent"},
	}
	text := Render(entries, 400)
	if strings.Contains(text, "Attempt 1") {
		t.Error("oldest entry should be dropped first")
	}
	if !strings.Contains(text, "Attempt 3") {
		t.Error("newest entry must survive truncation")
	}
}

func TestRenderKeepsLastEntryEvenWhenOversized(t *testing.T) {
	entries := []Entry{
		{Attempt: 1, Timestamp: "2026-01-01T00:00:00Z", Outcome: "verify_failed", Excerpt: strings.Repeat("x", 1000)},
	}
	text := Render(entries, 10)
	if !strings.Contains(text, "Attempt 1") {
		t.Error("the most recent entry is never dropped")
	}
}

func TestRenderEmpty(t *testing.T) {
	if Render(nil, 0) != "" {
		t.Error("no entries should render to empty string")
	}
}
