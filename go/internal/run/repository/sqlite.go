package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mcdev12/tempo/go/internal/run/schema"
	"github.com/mcdev12/tempo/go/internal/sqlutil"
)

type migration struct {
	Version int
	UpSQL   string
}

var sqliteMigrations = []migration{
	{
		Version: 1,
		UpSQL: `
CREATE TABLE IF NOT EXISTS run_sessions (
	session_id TEXT PRIMARY KEY,
	schema_version INTEGER NOT NULL,
	record TEXT NOT NULL,
	clock_base TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`,
	},
}

// SQLite is a single-node store backed by an embedded database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := applySQLiteMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// Ping checks the database is reachable
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applySQLiteMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations(version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range sqliteMigrations {
		var exists int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = ?`, m.Version).Scan(&exists)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}

		err = sqlutil.Run(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
				return fmt.Errorf("apply migration %d: %w", m.Version, err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, applied_at) VALUES (?, ?)`, m.Version, sqlutil.FormatTime(time.Now())); err != nil {
				return fmt.Errorf("record migration %d: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// GetSession loads and upgrades a session record
func (s *SQLite) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var record string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM run_sessions WHERE session_id = ?`, id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return schema.Upgrade([]byte(record))
}

// PutSession upserts a session record, leaving its clock base untouched
func (s *SQLite) PutSession(ctx context.Context, sess *models.Session) error {
	data, err := schema.Encode(sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO run_sessions(session_id, schema_version, record, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
	schema_version=excluded.schema_version,
	record=excluded.record,
	updated_at=excluded.updated_at
`, sess.ID, models.SessionSchemaVersion, string(data), sqlutil.FormatTime(sess.CreatedAt), sqlutil.FormatTime(sess.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to put session: %w", err)
	}
	return nil
}

// GetClockBase loads the clock base of a session
func (s *SQLite) GetClockBase(ctx context.Context, id string) (*models.ClockBase, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT clock_base FROM run_sessions WHERE session_id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("clock base %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clock base: %w", err)
	}
	data := sqlutil.FromSqlStringPtr(raw)
	if data == nil {
		return nil, fmt.Errorf("clock base %s: %w", id, ErrNotFound)
	}
	return decodeClockBase([]byte(*data))
}

// PutClockBase stores the clock base of an existing session
func (s *SQLite) PutClockBase(ctx context.Context, id string, base models.ClockBase) error {
	data, err := encodeClockBase(base)
	if err != nil {
		return err
	}
	text := string(data)
	res, err := s.db.ExecContext(ctx, `UPDATE run_sessions SET clock_base = ? WHERE session_id = ?`, sqlutil.ToSqlString(&text), id)
	if err != nil {
		return fmt.Errorf("failed to put clock base: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}
