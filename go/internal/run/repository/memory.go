package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mcdev12/tempo/go/internal/run/schema"
)

// Memory keeps encoded records in process memory. Records are stored in their
// encoded form so callers never share state with the store.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	clocks   map[string]models.ClockBase
}

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string][]byte),
		clocks:   make(map[string]models.ClockBase),
	}
}

// GetSession loads and upgrades a session record
func (m *Memory) GetSession(ctx context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	data, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return schema.Upgrade(data)
}

// PutSession stores a session record
func (m *Memory) PutSession(ctx context.Context, s *models.Session) error {
	data, err := schema.Encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[s.ID] = data
	m.mu.Unlock()
	return nil
}

// PutRaw stores an already encoded record, as written by an older build.
func (m *Memory) PutRaw(id string, data []byte) {
	m.mu.Lock()
	m.sessions[id] = append([]byte(nil), data...)
	m.mu.Unlock()
}

// GetClockBase loads the clock base of a session
func (m *Memory) GetClockBase(ctx context.Context, id string) (*models.ClockBase, error) {
	m.mu.RLock()
	base, ok := m.clocks[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("clock base %s: %w", id, ErrNotFound)
	}
	return &base, nil
}

// PutClockBase stores the clock base of a session
func (m *Memory) PutClockBase(ctx context.Context, id string, base models.ClockBase) error {
	m.mu.Lock()
	m.clocks[id] = base
	m.mu.Unlock()
	return nil
}
