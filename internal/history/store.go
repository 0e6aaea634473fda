package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID         string
	Task       string // The requested task name
	Target     string
	ExitCode   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// TaskRun is one task's outcome inside a run.
type TaskRun struct {
	Task     string
	Status   string
	Duration time.Duration
	Output   string // Tail of the task's combined tool output
}

// Store records runs and their per-task outcomes.
type Store interface {
	StartRun(ctx context.Context, taskName, target string) (runID string, err error)
	FinishRun(ctx context.Context, runID string, exitCode int) error
	SaveTaskRun(ctx context.Context, runID string, tr TaskRun) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	TaskRuns(ctx context.Context, runID string) ([]TaskRun, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the run history database at dbPath.
// Parent directories are created as needed. WAL mode and a busy timeout are
// set through the connection string.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	return open(ctx, connStr)
}

// NewMemoryStore creates an in-memory store for tests.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	return open(ctx, "file::memory:?mode=memory&cache=shared")
}

func open(ctx context.Context, connStr string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	// modernc.org/sqlite ignores _foreign_keys in the connection string.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	db.SetMaxOpenConns(2)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
