package session

import (
	"context"
	"sync"
	"time"

	"github.com/hetaoshu/hetaoshu-web/internal/domain"
)

type MemoryStore struct {
	mu           sync.RWMutex
	sessions     map[string]Session
	displayNames map[domain.ID]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:     make(map[string]Session),
		displayNames: make(map[domain.ID]string),
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, s := range m.sessions {
		if s.CreatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) SetDisplayName(_ context.Context, userID domain.ID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.displayNames[userID] = name
	return nil
}

func (m *MemoryStore) DisplayName(_ context.Context, userID domain.ID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name, ok := m.displayNames[userID]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}
