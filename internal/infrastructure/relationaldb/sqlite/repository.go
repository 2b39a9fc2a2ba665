// Package sqlite provides a SQLite implementation of the EventStore interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ersonp/calcore/internal/domain/ports"
	"github.com/ersonp/calcore/internal/infrastructure/config"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements ports.EventRepository over a connection or a transaction.
type queries struct {
	db dbtx
}

// Repository implements ports.EventStore using SQLite.
type Repository struct {
	queries
	db   *sql.DB
	path string
}

var _ ports.EventStore = (*Repository)(nil)

// NewRepository creates a new SQLite repository.
//
// The pool holds a single connection, so transactions are serialized and an
// in-memory database is shared by every call.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Repository{
		queries: queries{db: db},
		db:      db,
		path:    cfg.Path,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// WithTx runs fn in a transaction. The transaction commits when fn returns
// nil and rolls back otherwise. fn must only use the repository it is given.
func (r *Repository) WithTx(ctx context.Context, fn func(repo ports.EventRepository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&queries{db: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Events (times are unix nanoseconds, UTC)
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		title_folded TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		start_time INTEGER NOT NULL,
		end_time INTEGER NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		is_recurring INTEGER NOT NULL DEFAULT 0,
		recurrence_pattern TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		CHECK (start_time < end_time)
	);
	CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_time);

	-- Participants (one role per user and event)
	CREATE TABLE IF NOT EXISTS participants (
		event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('OWNER', 'EDITOR', 'VIEWER')),
		created_at INTEGER NOT NULL,
		UNIQUE(event_id, user_id)
	);
	CREATE INDEX IF NOT EXISTS idx_participants_user ON participants(user_id);

	-- Event snapshots (append-only; outlive the event they describe)
	CREATE TABLE IF NOT EXISTS event_snapshots (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		change_type TEXT NOT NULL,
		changed_by TEXT NOT NULL,
		reason TEXT,
		data TEXT NOT NULL,
		participants TEXT,
		created_at INTEGER NOT NULL,
		UNIQUE(event_id, version)
	);
	CREATE INDEX IF NOT EXISTS idx_event_snapshots_type ON event_snapshots(change_type);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
