package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS history_entries (
    id BIGSERIAL PRIMARY KEY,
    session_id TEXT NOT NULL,
    asked_at TEXT NOT NULL,
    question TEXT NOT NULL,
    response TEXT NOT NULL,
    thinking TEXT,
    files JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS history_entries_session_idx ON history_entries (session_id, id);
`

// PostgresStore keeps history in Postgres.
type PostgresStore struct {
	DB    *pgxpool.Pool
	limit int
}

// NewPostgresStore connects to Postgres and ensures the schema exists.
func NewPostgresStore(ctx context.Context, connStr string, limit int) (*PostgresStore, error) {
	if connStr == "" {
		return nil, errors.New("postgres connection string is required")
	}
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	ps := &PostgresStore{DB: db, limit: limit}
	if err := ps.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return ps, nil
}

// CreateSchema creates the history table if missing.
func (ps *PostgresStore) CreateSchema(ctx context.Context) error {
	if _, err := ps.DB.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Append inserts the entry and trims the session inside one transaction. An
// advisory lock on the session id serialises concurrent appends.
func (ps *PostgresStore) Append(ctx context.Context, sessionID string, e Entry) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	files, err := encodeFiles(e.Files)
	if err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, ps.DB, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, sessionID); err != nil {
			return fmt.Errorf("lock session: %w", err)
		}
		if _, err := tx.Exec(ctx, `
                INSERT INTO history_entries (session_id, asked_at, question, response, thinking, files)
                VALUES ($1, $2, $3, $4, $5, $6::jsonb)
        `, sessionID, e.Timestamp, e.Question, e.Response, e.Thinking, files); err != nil {
			return fmt.Errorf("insert history entry: %w", err)
		}
		if _, err := tx.Exec(ctx, `
                DELETE FROM history_entries
                WHERE session_id = $1 AND id NOT IN (
                    SELECT id FROM history_entries WHERE session_id = $1 ORDER BY id DESC LIMIT $2
                )
        `, sessionID, ps.limit); err != nil {
			return fmt.Errorf("trim history: %w", err)
		}
		return nil
	})
}

func (ps *PostgresStore) List(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := ps.DB.Query(ctx, `
        SELECT asked_at, question, response, thinking, files::text
        FROM history_entries
        WHERE session_id = $1
        ORDER BY id ASC
        `, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e     Entry
			files string
		)
		if err := rows.Scan(&e.Timestamp, &e.Question, &e.Response, &e.Thinking, &files); err != nil {
			return nil, err
		}
		if e.Files, err = decodeFiles(files); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (ps *PostgresStore) Clear(ctx context.Context, sessionID string) error {
	_, err := ps.DB.Exec(ctx, `DELETE FROM history_entries WHERE session_id = $1`, sessionID)
	return err
}

// Close releases the underlying Postgres connection pool.
func (ps *PostgresStore) Close() error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	ps.DB.Close()
	return nil
}

var _ Store = (*PostgresStore)(nil)
