// Package ledger persists admitted dedup keys so consecutive runs can seed
// their ledgers.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/newthinker/pulse/internal/core"
)

// SQLite stores keys in a single table with the time they were first saved.
type SQLite struct {
	db        *sql.DB
	retention time.Duration
	now       func() time.Time
}

// NewSQLite opens or creates the database at path. Keys older than
// retention are pruned on save and ignored on load; zero keeps them forever.
func NewSQLite(path string, retention time.Duration) (*SQLite, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "pulse", "ledger.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS dedup_keys (
		key        TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_dedup_keys_created_at ON dedup_keys(created_at)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLite{db: db, retention: retention, now: time.Now}, nil
}

func (s *SQLite) cutoff() int64 {
	if s.retention <= 0 {
		return 0
	}
	return s.now().Add(-s.retention).UnixNano()
}

// Load returns keys saved within the retention window.
func (s *SQLite) Load(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM dedup_keys WHERE created_at >= ? ORDER BY key`, s.cutoff())
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, fmt.Errorf("query keys: %w", err))
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, fmt.Errorf("scan key: %w", err))
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return keys, nil
}

// Save inserts new keys, keeping the first-seen time of existing ones, and
// prunes expired keys.
func (s *SQLite) Save(ctx context.Context, keys []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO dedup_keys (key, created_at) VALUES (?, ?)`)
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, fmt.Errorf("prepare insert: %w", err))
	}
	defer stmt.Close()

	now := s.now().UnixNano()
	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, k, now); err != nil {
			return core.WrapError(core.ErrStoreFailed, fmt.Errorf("insert key: %w", err))
		}
	}

	if cutoff := s.cutoff(); cutoff > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM dedup_keys WHERE created_at < ?`, cutoff); err != nil {
			return core.WrapError(core.ErrStoreFailed, fmt.Errorf("prune keys: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return core.WrapError(core.ErrStoreFailed, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}
