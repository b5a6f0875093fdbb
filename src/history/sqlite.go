package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS history_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    asked_at TEXT NOT NULL,
    question TEXT NOT NULL,
    response TEXT NOT NULL,
    thinking TEXT,
    files TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_history_session ON history_entries(session_id, id);`

// SQLiteStore keeps history in a local SQLite file.
type SQLiteStore struct {
	DB    *sql.DB
	limit int
}

// NewSQLiteStore opens (creating if needed) the database at dsn and applies
// the schema.
func NewSQLiteStore(ctx context.Context, dsn string, limit int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps append-and-trim serialised.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &SQLiteStore{DB: db, limit: limit}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, sessionID string, e Entry) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	files, err := encodeFiles(e.Files)
	if err != nil {
		return err
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO history_entries (session_id, asked_at, question, response, thinking, files) VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, e.Timestamp, e.Question, e.Response, nullString(e.Thinking), files); err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
        DELETE FROM history_entries
        WHERE session_id = ? AND id NOT IN (
            SELECT id FROM history_entries WHERE session_id = ? ORDER BY id DESC LIMIT ?
        )`, sessionID, sessionID, s.limit); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) List(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.DB.QueryContext(ctx, `
        SELECT asked_at, question, response, thinking, files
        FROM history_entries WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e        Entry
			thinking sql.NullString
			files    string
		)
		if err := rows.Scan(&e.Timestamp, &e.Question, &e.Response, &thinking, &files); err != nil {
			return nil, err
		}
		if thinking.Valid {
			t := thinking.String
			e.Thinking = &t
		}
		if e.Files, err = decodeFiles(files); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM history_entries WHERE session_id = ?`, sessionID)
	return err
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

var _ Store = (*SQLiteStore)(nil)
