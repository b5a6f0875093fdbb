// Package history keeps the bounded per-session record of past questions and
// answers.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultLimit is how many entries a session keeps.
const DefaultLimit = 10

// TimestampLayout formats Entry.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// ErrEmptySession is returned when an operation has no session id.
var ErrEmptySession = errors.New("history: empty session id")

// Entry is one answered question.
type Entry struct {
	Timestamp string   `json:"timestamp" bson:"timestamp"`
	Question  string   `json:"question" bson:"question"`
	Response  string   `json:"response" bson:"response"`
	Thinking  *string  `json:"thinking,omitempty" bson:"thinking,omitempty"`
	Files     []string `json:"files" bson:"files"`
}

// Store persists entries per session. Append keeps only the newest entries up
// to the store's limit, evicting oldest first, atomically per session. List
// returns entries oldest first and never nil.
type Store interface {
	Append(ctx context.Context, sessionID string, e Entry) error
	List(ctx context.Context, sessionID string) ([]Entry, error)
	Clear(ctx context.Context, sessionID string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend       string // memory|sqlite|postgres|mongo
	DSN           string
	MongoDatabase string
	Limit         int
	SessionTTL    time.Duration
	Capacity      int
}

// NewStore opens the configured backend.
func NewStore(ctx context.Context, opts Options) (Store, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	switch opts.Backend {
	case "", "memory":
		return NewMemoryStore(limit, opts.Capacity, opts.SessionTTL), nil
	case "sqlite":
		dsn := opts.DSN
		if dsn == "" {
			dsn = "history.db"
		}
		s, err := NewSQLiteStore(ctx, dsn, limit)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgresStore(ctx, opts.DSN, limit)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "mongo":
		s, err := NewMongoStore(ctx, opts.DSN, opts.MongoDatabase, limit)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown history backend: %s", opts.Backend)
	}
}

// Trim returns the last limit entries of entries.
func Trim(entries []Entry, limit int) []Entry {
	if limit <= 0 || len(entries) <= limit {
		return entries
	}
	return entries[len(entries)-limit:]
}

// Now formats t the way entries are stamped.
func Now(t time.Time) string {
	return t.Format(TimestampLayout)
}

func normalize(e Entry) Entry {
	if e.Files == nil {
		e.Files = []string{}
	}
	return e
}
