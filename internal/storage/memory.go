package storage

import (
	"context"
	"sync"
)

// MemoryBackend implements an in-process Backend. Nothing survives the
// process; it backs ephemeral games and tests.
type MemoryBackend struct {
	mu    sync.Mutex
	table *Table
	saves int
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// NewMemoryBackendWith creates a backend that already holds t
func NewMemoryBackendWith(t *Table) *MemoryBackend {
	return &MemoryBackend{table: t.clone()}
}

// Load implements Backend.Load
func (m *MemoryBackend) Load(ctx context.Context) (*Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.table == nil {
		return nil, ErrNotFound
	}
	return m.table.clone(), nil
}

// Save implements Backend.Save
func (m *MemoryBackend) Save(ctx context.Context, t *Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.table = t.clone()
	m.saves++
	return nil
}

// Saves returns how many times Save has been called
func (m *MemoryBackend) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Close implements Backend.Close
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.table = nil
	return nil
}
