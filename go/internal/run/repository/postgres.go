package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mcdev12/tempo/go/internal/run/schema"
	"github.com/mcdev12/tempo/go/internal/sqlutil"
)

// PostgresSchema creates the tables the Postgres repository needs.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS run_sessions (
	session_id TEXT PRIMARY KEY,
	schema_version INTEGER NOT NULL,
	record JSONB NOT NULL,
	clock_base JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres stores sessions in a shared Postgres database.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a Postgres repository on an open lib/pq handle
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Ping checks the database is reachable
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// GetSession loads and upgrades a session record
func (p *Postgres) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var record []byte
	err := p.db.QueryRowContext(ctx, `SELECT record FROM run_sessions WHERE session_id = $1`, id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return schema.Upgrade(record)
}

// PutSession upserts a session record, leaving its clock base untouched
func (p *Postgres) PutSession(ctx context.Context, s *models.Session) error {
	data, err := schema.Encode(s)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
INSERT INTO run_sessions (session_id, schema_version, record, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (session_id) DO UPDATE SET
	schema_version = EXCLUDED.schema_version,
	record = EXCLUDED.record,
	updated_at = EXCLUDED.updated_at
`, s.ID, models.SessionSchemaVersion, data, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to put session: %w", err)
	}
	return nil
}

// GetClockBase loads the clock base of a session
func (p *Postgres) GetClockBase(ctx context.Context, id string) (*models.ClockBase, error) {
	var raw pqtype.NullRawMessage
	err := p.db.QueryRowContext(ctx, `SELECT clock_base FROM run_sessions WHERE session_id = $1`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("clock base %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clock base: %w", err)
	}
	data := sqlutil.FromNullRawMessage(raw)
	if data == nil {
		return nil, fmt.Errorf("clock base %s: %w", id, ErrNotFound)
	}
	return decodeClockBase(data)
}

// PutClockBase stores the clock base of an existing session
func (p *Postgres) PutClockBase(ctx context.Context, id string, base models.ClockBase) error {
	data, err := encodeClockBase(base)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE run_sessions SET clock_base = $1 WHERE session_id = $2`,
		sqlutil.ToNullRawMessage(data), id)
	if err != nil {
		return fmt.Errorf("failed to put clock base: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}
