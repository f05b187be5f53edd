package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// ErrClosed is returned when the store is used after Close
var ErrClosed = errors.New("journal store is closed")

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db      *sql.DB
	closed  atomic.Bool
	writeMu sync.Mutex
}

// NewSQLiteStore opens (or creates) the journal database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(60000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		bucket TEXT NOT NULL DEFAULT '',
		object TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		last_error TEXT,
		duration_ms INTEGER NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_run_status ON tasks(run_id, status);
	`

	_, err := s.db.Exec(query)
	return err
}

// RecordTask appends a task outcome
func (s *SQLiteStore) RecordTask(record *TaskRecord) error {
	if s.closed.Load() {
		return ErrClosed
	}

	// Serialize writes to avoid SQLITE_BUSY from concurrent workers
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now()
	}

	return s.retryOnBusy(func() error {
		var lastError sql.NullString
		if record.LastError != "" {
			lastError = sql.NullString{String: record.LastError, Valid: true}
		}

		_, err := s.db.Exec(`
		INSERT INTO tasks
		(run_id, kind, endpoint, bucket, object, status, last_error, duration_ms, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.RunID,
			record.Kind,
			record.Endpoint,
			record.Bucket,
			record.Object,
			string(record.Status),
			lastError,
			record.Duration.Milliseconds(),
			record.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert task record: %w", err)
		}
		return nil
	})
}

// ListTasks returns the records of a run with the given status, oldest first
func (s *SQLiteStore) ListTasks(runID string, status TaskStatus) ([]*TaskRecord, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`
	SELECT run_id, kind, endpoint, bucket, object, status, last_error, duration_ms, updated_at
	FROM tasks WHERE run_id = ? AND status = ?
	ORDER BY id ASC`, runID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*TaskRecord

	for rows.Next() {
		var record TaskRecord
		var lastError sql.NullString
		var durationMs int64

		err := rows.Scan(
			&record.RunID,
			&record.Kind,
			&record.Endpoint,
			&record.Bucket,
			&record.Object,
			&record.Status,
			&lastError,
			&durationMs,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		record.LastError = lastError.String
		record.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, &record)
	}

	return records, rows.Err()
}

// retryOnBusy retries the operation if SQLite is busy
func (s *SQLiteStore) retryOnBusy(operation func() error) error {
	const maxRetries = 10
	baseDelay := 50 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = operation()
		if err == nil || !isSQLiteBusyError(err) {
			return err
		}
		time.Sleep(baseDelay*time.Duration(1<<uint(attempt)) + time.Duration(attempt*10)*time.Millisecond)
	}

	return err
}

// isSQLiteBusyError checks if the error is a SQLite busy error
func isSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	errorStr := err.Error()
	return strings.Contains(errorStr, "database is locked") ||
		strings.Contains(errorStr, "SQLITE_BUSY")
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
