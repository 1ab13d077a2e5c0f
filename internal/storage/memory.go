package storage

import (
	"context"
	"sync"
	"time"
)

type memorySession struct {
	values  map[string]string
	touched time.Time
}

// Memory хранит сессии в памяти процесса. Перезапуск сервиса очищает всё,
// как закрытие вкладки очищает sessionStorage.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*memorySession),
		now:      time.Now,
	}
}

func (m *Memory) Get(_ context.Context, sessionID, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return "", false, nil
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, sessionID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		s = &memorySession{values: make(map[string]string)}
		m.sessions[sessionID] = s
	}
	s.values[key] = value
	s.touched = m.now()
	return nil
}

func (m *Memory) Remove(_ context.Context, sessionID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(s.values, key)
	s.touched = m.now()
	if len(s.values) == 0 {
		delete(m.sessions, sessionID)
	}
	return nil
}

func (m *Memory) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *Memory) PurgeIdle(_ context.Context, idleSince time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, s := range m.sessions {
		if s.touched.Before(idleSince) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
