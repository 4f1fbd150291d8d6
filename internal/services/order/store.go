package order

import (
	"context"
	"errors"
	"sync"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists sessions between requests. Saves of the same id are
// last-write-wins.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, session *Session) error
}

// LoadSession returns the stored session for id or a new empty one.
func LoadSession(ctx context.Context, store SessionStore, id string) (*Session, error) {
	session, err := store.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return NewSession(id), nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// MemoryStore keeps encoded snapshots in process memory. Callers always get
// a private copy, so concurrent requests never share a *Session.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	data, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return UnmarshalSession(data)
}

func (m *MemoryStore) Put(_ context.Context, session *Session) error {
	data, err := session.Marshal()
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.sessions[session.ID] = data
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
