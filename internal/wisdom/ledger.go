// Package wisdom accumulates failure narratives across attempts of one
// task line. The ledger is append-only and durable: each entry survives a
// controller restart, and the full ledger is folded into every mission
// brief after the first attempt so the agent is steered away from known
// dead ends.
package wisdom

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wiggum/internal/store"
)

// Entry is one failure narrative, recorded when an attempt aborts.
type Entry struct {
	Attempt   int    `json:"attempt"`
	Timestamp string `json:"timestamp"`
	Outcome   string `json:"outcome"`
	Excerpt   string `json:"excerpt"`
}

type ledgerFile struct {
	Task    string  `json:"task"`
	Entries []Entry `json:"entries"`
}

// Ledger is the append-only wisdom store for one task line.
type Ledger struct {
	taskID string
	dir    string
}

// NewLedger opens (or lazily creates) the ledger for a task line, rooted
// in that task's store directory.
func NewLedger(taskID string, taskDir string) *Ledger {
	return &Ledger{taskID: taskID, dir: taskDir}
}

func (l *Ledger) jsonPath() string { return filepath.Join(l.dir, "wisdom.json") }
func (l *Ledger) docPath() string  { return filepath.Join(l.dir, "wisdom.md") }

// Append records a failure narrative. The structured file is the source of
// truth; a human-readable wisdom.md is re-rendered beside it. Both writes
// are atomic, and an error here must abort the run — a lost entry breaks
// the "never repeat a proven mistake" guarantee.
func (l *Ledger) Append(e Entry) error {
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	lf, err := l.read()
	if err != nil {
		return err
	}
	lf.Task = l.taskID
	lf.Entries = append(lf.Entries, e)

	if err := store.WriteJSON(l.jsonPath(), lf); err != nil {
		return fmt.Errorf("append wisdom entry: %w", err)
	}
	if err := store.WriteAtomic(l.docPath(), []byte(renderDoc(l.taskID, lf.Entries))); err != nil {
		return fmt.Errorf("render wisdom doc: %w", err)
	}
	return nil
}

// Snapshot returns an immutable copy of all entries in append order.
func (l *Ledger) Snapshot() ([]Entry, error) {
	lf, err := l.read()
	if err != nil {
		return nil, err
	}
	return append([]Entry(nil), lf.Entries...), nil
}

func (l *Ledger) read() (*ledgerFile, error) {
	var lf ledgerFile
	if err := store.ReadJSON(l.jsonPath(), &lf); err != nil {
		if os.IsNotExist(err) {
			return &ledgerFile{Task: l.taskID}, nil
		}
		return nil, err
	}
	return &lf, nil
}

// Render formats entries as the "do not repeat these mistakes" section of
// a mission brief. maxBytes > 0 drops oldest entries until the rendered
// text fits; 0 means full recall (the default — truncation is an explicit
// policy, never an implicit one).
func Render(entries []Entry, maxBytes int) string {
	if len(entries) == 0 {
		return ""
	}

	kept := entries
	for {
		var sb strings.Builder
		for _, e := range kept {
			fmt.Fprintf(&sb, "### Attempt %d (%s, %s)\n%s\n\n", e.Attempt, e.Timestamp, e.Outcome, strings.TrimSpace(e.Excerpt))
		}
		text := strings.TrimSuffix(sb.String(), "\n")
		if maxBytes <= 0 || len(text) <= maxBytes || len(kept) <= 1 {
			return text
		}
		kept = kept[1:]
	}
}

// renderDoc formats the standalone wisdom document written next to the
// structured ledger.
func renderDoc(taskID string, entries []Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Wisdom ledger: %s\n\n", taskID)
	if len(entries) == 0 {
		sb.WriteString("No failed attempts recorded.\n")
		return sb.String()
	}
	sb.WriteString(Render(entries, 0))
	sb.WriteString("\n")
	return sb.String()
}
