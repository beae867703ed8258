package state

import (
	"context"
	"sync"
)

// MemoryStorage keeps sessions in process memory. Values are cloned on the way in and out.
type MemoryStorage struct {
	mu       sync.RWMutex
	sessions map[int64]*UserSession
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{sessions: make(map[int64]*UserSession)}
}

func (m *MemoryStorage) GetSession(ctx context.Context, userID int64) (*UserSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (m *MemoryStorage) SaveSession(ctx context.Context, session *UserSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[session.UserID] = session.Clone()
	return nil
}

func (m *MemoryStorage) ClearSession(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
	return nil
}

func (m *MemoryStorage) GetAllSessions(ctx context.Context) ([]*UserSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*UserSession, 0, len(m.sessions))
	for _, session := range m.sessions {
		out = append(out, session.Clone())
	}
	return out, nil
}
