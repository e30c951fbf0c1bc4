package parametros

import (
	"context"
	"sync"
)

// Repository is the Parameter Store. Put is a compare-and-set on Version:
// version 1 inserts and requires the id to be absent, any later version
// replaces the stored record only when it sits at Version-1.
type Repository interface {
	GetAll(ctx context.Context, kind Kind) ([]Record, error)
	Get(ctx context.Context, kind Kind, id string) (Record, error)
	Put(ctx context.Context, kind Kind, record Record) (Record, error)
	Delete(ctx context.Context, kind Kind, id string) error
}

// MemoryRepository keeps records in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[Kind]map[string]Record
	order   map[Kind][]string
}

// NewMemoryRepository returns an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[Kind]map[string]Record),
		order:   make(map[Kind][]string),
	}
}

// GetAll returns the records of kind in insertion order.
func (m *MemoryRepository) GetAll(ctx context.Context, kind Kind) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("get_all", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.order[kind]))
	for _, id := range m.order[kind] {
		out = append(out, m.records[kind][id].Clone())
	}
	return out, nil
}

// Get returns one record.
func (m *MemoryRepository) Get(ctx context.Context, kind Kind, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, storageErr("get", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[kind][id]
	if !ok {
		return Record{}, notFound(kind, id)
	}
	return rec.Clone(), nil
}

// Put inserts or replaces a record under the version rule of Repository.
func (m *MemoryRepository) Put(ctx context.Context, kind Kind, record Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, storageErr("put", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := m.records[kind]
	if byID == nil {
		byID = make(map[string]Record)
		m.records[kind] = byID
	}
	current, exists := byID[record.ID]
	switch {
	case record.Version <= 1:
		if exists {
			return Record{}, conflict(kind, record.ID, 0, current.Version)
		}
		record.Version = 1
		m.order[kind] = append(m.order[kind], record.ID)
	case !exists:
		return Record{}, notFound(kind, record.ID)
	case current.Version != record.Version-1:
		return Record{}, conflict(kind, record.ID, record.Version-1, current.Version)
	}
	record.Kind = kind
	byID[record.ID] = record.Clone()
	return record.Clone(), nil
}

// Delete removes a record.
func (m *MemoryRepository) Delete(ctx context.Context, kind Kind, id string) error {
	if err := ctx.Err(); err != nil {
		return storageErr("delete", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[kind][id]; !ok {
		return notFound(kind, id)
	}
	delete(m.records[kind], id)
	ids := m.order[kind]
	for i, existing := range ids {
		if existing == id {
			m.order[kind] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
