package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ FetchJournal = (*SQLiteJournal)(nil)
var _ FetchJournal = NoopJournal{}

// SQLiteJournal implements FetchJournal backed by a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteJournal opens (or creates) a SQLite database at dbPath and runs
// migrations.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets a second process read the journal while the dashboard writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	j := &SQLiteJournal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fetches (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			view        TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			outcome     TEXT NOT NULL,
			kind        TEXT,
			status      INTEGER,
			duration_ms INTEGER,
			detail      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetches_ts ON fetches(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_fetches_symbol ON fetches(symbol)`,
	}
	for _, s := range stmts {
		if _, err := j.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Record inserts one fetch outcome.
func (j *SQLiteJournal) Record(ctx context.Context, rec FetchRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `INSERT INTO fetches
		(timestamp, view, symbol, outcome, kind, status, duration_ms, detail)
		VALUES (?,?,?,?,?,?,?,?)`,
		rec.Time.UnixMilli(), rec.View, rec.Symbol, rec.Outcome,
		rec.Kind, rec.Status, rec.Duration.Milliseconds(), rec.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert fetch: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]FetchRecord, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT
		timestamp, view, symbol, outcome, kind, status, duration_ms, detail
		FROM fetches ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query fetches: %w", err)
	}
	defer rows.Close()

	var out []FetchRecord
	for rows.Next() {
		var (
			rec       FetchRecord
			ts, durMs int64
			kind, det sql.NullString
			status    sql.NullInt64
		)
		if err := rows.Scan(&ts, &rec.View, &rec.Symbol, &rec.Outcome, &kind, &status, &durMs, &det); err != nil {
			return nil, fmt.Errorf("scan fetch: %w", err)
		}
		rec.Time = time.UnixMilli(ts)
		rec.Kind = kind.String
		rec.Status = int(status.Int64)
		rec.Duration = time.Duration(durMs) * time.Millisecond
		rec.Detail = det.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
