package history

import (
	"context"
	"time"

	"github.com/Protocol-Lattice/codeassist/src/cache"
)

// DefaultSessionCapacity bounds how many sessions the memory store tracks.
const DefaultSessionCapacity = 10000

// MemoryStore keeps history in process. Sessions idle longer than the TTL, or
// least recently used beyond the capacity, are forgotten.
type MemoryStore struct {
	limit    int
	sessions *cache.LRUCache[[]Entry]
}

func NewMemoryStore(limit, capacity int, ttl time.Duration) *MemoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if capacity <= 0 {
		capacity = DefaultSessionCapacity
	}
	return &MemoryStore{
		limit:    limit,
		sessions: cache.NewLRUCache[[]Entry](capacity, ttl),
	}
}

func (m *MemoryStore) Append(_ context.Context, sessionID string, e Entry) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	e = normalize(e)
	m.sessions.Update(sessionID, func(current []Entry, _ bool) []Entry {
		next := make([]Entry, 0, len(current)+1)
		next = append(next, current...)
		next = append(next, e)
		return Trim(next, m.limit)
	})
	return nil
}

func (m *MemoryStore) List(_ context.Context, sessionID string) ([]Entry, error) {
	entries, ok := m.sessions.Get(sessionID)
	if !ok {
		return []Entry{}, nil
	}
	return append([]Entry(nil), entries...), nil
}

func (m *MemoryStore) Clear(_ context.Context, sessionID string) error {
	m.sessions.Delete(sessionID)
	return nil
}

func (m *MemoryStore) Close() error {
	m.sessions.Clear()
	return nil
}

var _ Store = (*MemoryStore)(nil)
