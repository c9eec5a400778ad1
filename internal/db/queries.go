package db

import (
	"database/sql"
	"fmt"
	"time"
)

// AttemptEvent is one row of the attempt event log.
type AttemptEvent struct {
	ID        int64
	TaskID    string
	Attempt   int
	Event     string
	Outcome   string
	Detail    string
	Timestamp string
}

// LogAttemptEvent records a lifecycle event for an attempt. The event log
// is advisory telemetry: callers treat failures as non-fatal.
func (d *DB) LogAttemptEvent(taskID string, attempt int, event, outcome, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO attempt_events (task_id, attempt, event, outcome, detail) VALUES (?, ?, ?, ?, ?)`,
		taskID, attempt, event, nullable(outcome), nullable(detail),
	)
	if err != nil {
		return fmt.Errorf("log attempt event: %w", err)
	}
	return nil
}

// LogVerifyRun records the result of one verification run.
func (d *DB) LogVerifyRun(taskID string, attempt int, passed, skipped bool, exitCode int, duration time.Duration) error {
	_, err := d.conn.Exec(
		`INSERT INTO verify_runs (task_id, attempt, passed, skipped, exit_code, duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		taskID, attempt, passed, skipped, exitCode, duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("log verify run: %w", err)
	}
	return nil
}

// GetTaskEvents returns a task's events in insertion order, newest last.
func (d *DB) GetTaskEvents(taskID string, limit int) ([]AttemptEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.conn.Query(
		`SELECT id, task_id, attempt, event, COALESCE(outcome, ''), COALESCE(detail, ''), timestamp
		 FROM attempt_events WHERE task_id = ? ORDER BY id ASC LIMIT ?`,
		taskID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query task events: %w", err)
	}
	defer rows.Close()

	var events []AttemptEvent
	for rows.Next() {
		var e AttemptEvent
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Attempt, &e.Event, &e.Outcome, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// TaskStats aggregates attempt outcomes for one task line.
type TaskStats struct {
	TaskID        string
	Attempts      int
	Outcomes      map[string]int
	VerifyRuns    int
	VerifyPasses  int
	AvgVerifyMs   int64
	FirstEventAt  string
	LatestEventAt string
}

// GetTaskStats computes outcome counts and verification aggregates for a
// task line from the event log.
func (d *DB) GetTaskStats(taskID string) (*TaskStats, error) {
	stats := &TaskStats{TaskID: taskID, Outcomes: make(map[string]int)}

	rows, err := d.conn.Query(
		`SELECT COALESCE(outcome, ''), COUNT(*) FROM attempt_events
		 WHERE task_id = ? AND event = 'aborted' GROUP BY outcome`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query outcome counts: %w", err)
	}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		if outcome != "" {
			stats.Outcomes[outcome] = n
			stats.Attempts += n
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var resolved int
	if err := d.conn.QueryRow(
		`SELECT COUNT(*) FROM attempt_events WHERE task_id = ? AND event = 'resolved'`,
		taskID,
	).Scan(&resolved); err != nil {
		return nil, fmt.Errorf("query resolved count: %w", err)
	}
	if resolved > 0 {
		stats.Outcomes["success"] = resolved
		stats.Attempts += resolved
	}

	var avgMs sql.NullFloat64
	if err := d.conn.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(passed), 0), AVG(duration_ms)
		 FROM verify_runs WHERE task_id = ?`,
		taskID,
	).Scan(&stats.VerifyRuns, &stats.VerifyPasses, &avgMs); err != nil {
		return nil, fmt.Errorf("query verify aggregates: %w", err)
	}
	if avgMs.Valid {
		stats.AvgVerifyMs = int64(avgMs.Float64)
	}

	var first, latest sql.NullString
	if err := d.conn.QueryRow(
		`SELECT MIN(timestamp), MAX(timestamp) FROM attempt_events WHERE task_id = ?`,
		taskID,
	).Scan(&first, &latest); err != nil {
		return nil, fmt.Errorf("query event timestamps: %w", err)
	}
	stats.FirstEventAt = first.String
	stats.LatestEventAt = latest.String

	return stats, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
