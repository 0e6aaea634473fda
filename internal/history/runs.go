package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// outputTailLimit bounds how much tool output is kept per task row.
const outputTailLimit = 4096

// timeLayout is the storage format for timestamps. Timestamps are stored as
// UTC text in a fixed-width layout so ORDER BY on the column is
// chronological and values round-trip through the driver as plain strings.
const timeLayout = "2006-01-02 15:04:05.000000000"

// StartRun records the beginning of a run and returns its ID.
func (s *SQLiteStore) StartRun(ctx context.Context, taskName, target string) (string, error) {
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, task, target, started_at)
		VALUES (?, ?, ?, ?)
	`, id, taskName, target, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	return id, nil
}

// FinishRun records a run's final exit code.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, exitCode int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET exit_code = ?, finished_at = ? WHERE id = ?
	`, exitCode, time.Now().UTC().Format(timeLayout), runID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}

	return nil
}

// SaveTaskRun records one task's outcome within a run.
func (s *SQLiteStore) SaveTaskRun(ctx context.Context, runID string, tr TaskRun) error {
	output := tr.Output
	if len(output) > outputTailLimit {
		output = output[len(output)-outputTailLimit:]
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_tasks (run_id, task, status, duration_ms, output)
		VALUES (?, ?, ?, ?, ?)
	`, runID, tr.Task, tr.Status, tr.Duration.Milliseconds(), output)
	if err != nil {
		return fmt.Errorf("inserting task run: %w", err)
	}

	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task, target, COALESCE(exit_code, -1), started_at, COALESCE(finished_at, started_at)
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Task, &r.Target, &r.ExitCode, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parsing started_at %q: %w", started, err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("parsing finished_at %q: %w", finished, err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// TaskRuns returns the per-task rows of a run in execution order.
func (s *SQLiteStore) TaskRuns(ctx context.Context, runID string) ([]TaskRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task, status, duration_ms, COALESCE(output, '')
		FROM run_tasks
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying task runs: %w", err)
	}
	defer rows.Close()

	var out []TaskRun
	for rows.Next() {
		var tr TaskRun
		var ms int64
		if err := rows.Scan(&tr.Task, &tr.Status, &ms, &tr.Output); err != nil {
			return nil, fmt.Errorf("scanning task run: %w", err)
		}
		tr.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, tr)
	}

	return out, rows.Err()
}
