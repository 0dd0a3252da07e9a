package snapshot

import (
	"context"
	"sync"

	"MarketPulse/internal/model"
)

// Store holds the last successful snapshot per symbol. Put fully replaces the
// previous value; implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, symbol string) (model.Snapshot, bool)
	Put(ctx context.Context, snap model.Snapshot)
}

// MemoryStore is the in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]model.Snapshot
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]model.Snapshot)}
}

func (m *MemoryStore) Get(_ context.Context, symbol string) (model.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[symbol]
	if !ok {
		return model.Snapshot{}, false
	}
	return s.Clone(), true
}

func (m *MemoryStore) Put(_ context.Context, snap model.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[snap.Symbol] = snap.Clone()
}

// Len reports the number of cached symbols.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
