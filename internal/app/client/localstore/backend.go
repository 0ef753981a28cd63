package localstore

import (
	"context"
	"sync"
)

// Backend persists records exactly as given. Sensitive fields arrive already encoded.
type Backend interface {
	Load(ctx context.Context, localID string) (Record, error)
	LoadAll(ctx context.Context) ([]Record, error)
	FindByHealthID(ctx context.Context, healthID string) ([]Record, error)
	Save(ctx context.Context, rec Record) error
	Remove(ctx context.Context, localID string) error
	Close() error
}

// MemoryBackend keeps records in a map.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[string]Record)}
}

func (m *MemoryBackend) Load(_ context.Context, localID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[localID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryBackend) LoadAll(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *MemoryBackend) FindByHealthID(_ context.Context, healthID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, rec := range m.records {
		if rec.HealthID == healthID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *MemoryBackend) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[rec.LocalID] = rec
	return nil
}

func (m *MemoryBackend) Remove(_ context.Context, localID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, localID)
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
