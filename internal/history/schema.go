package history

import "context"

// initSchema creates the tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		task TEXT NOT NULL,
		target TEXT NOT NULL,
		exit_code INTEGER,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS run_tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		task TEXT NOT NULL,
		status TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		output TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_run_tasks_run_id ON run_tasks(run_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
