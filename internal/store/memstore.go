package store

import (
	"context"
	"sync"

	"github.com/dusk-indust/quadflow/internal/rdf"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store with an insertion-ordered slice and a key
// index. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu    sync.RWMutex
	quads []rdf.Quad
	index map[string]int // key -> position in quads
}

// NewMemStore returns an empty MemStore, optionally seeded with quads.
func NewMemStore(quads ...rdf.Quad) *MemStore {
	m := &MemStore{index: make(map[string]int, len(quads))}
	for _, q := range quads {
		m.addLocked(q)
	}
	return m
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

func (m *MemStore) addLocked(q rdf.Quad) bool {
	k := q.Key()
	if _, ok := m.index[k]; ok {
		return false
	}
	m.index[k] = len(m.quads)
	m.quads = append(m.quads, q)
	return true
}

// Add appends quads whose key is not yet present.
func (m *MemStore) Add(_ context.Context, quads ...rdf.Quad) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, q := range quads {
		if m.addLocked(q) {
			n++
		}
	}
	return n, nil
}

// Insert is Add without a context, for callers that own the store.
func (m *MemStore) Insert(quads ...rdf.Quad) int {
	n, _ := m.Add(context.Background(), quads...)
	return n
}

// Has reports whether q is present.
func (m *MemStore) Has(q rdf.Quad) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.index[q.Key()]
	return ok
}

// Remove deletes quads and compacts the slice, keeping relative order.
func (m *MemStore) Remove(_ context.Context, quads ...rdf.Quad) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[string]bool, len(quads))
	for _, q := range quads {
		if _, ok := m.index[q.Key()]; ok {
			drop[q.Key()] = true
		}
	}
	if len(drop) == 0 {
		return 0, nil
	}
	m.filterLocked(func(q rdf.Quad) bool { return !drop[q.Key()] })
	return len(drop), nil
}

// filterLocked keeps the quads for which keep returns true.
func (m *MemStore) filterLocked(keep func(rdf.Quad) bool) int {
	kept := m.quads[:0]
	removed := 0
	for _, q := range m.quads {
		if keep(q) {
			kept = append(kept, q)
		} else {
			removed++
		}
	}
	// Clear the tail so dropped terms can be collected.
	for i := len(kept); i < len(m.quads); i++ {
		m.quads[i] = rdf.Quad{}
	}
	m.quads = kept
	m.index = make(map[string]int, len(kept))
	for i, q := range kept {
		m.index[q.Key()] = i
	}
	return removed
}

// Quads returns matching quads in insertion order.
func (m *MemStore) Quads(_ context.Context, p Pattern) ([]rdf.Quad, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]rdf.Quad, 0, len(m.quads))
	for _, q := range m.quads {
		if p.Matches(q) {
			out = append(out, q)
		}
	}
	return out, nil
}

// All returns a copy of every quad in insertion order.
func (m *MemStore) All() []rdf.Quad {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]rdf.Quad, len(m.quads))
	copy(out, m.quads)
	return out
}

// Keys returns the set of structural keys currently present.
func (m *MemStore) Keys() map[string]struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]struct{}, len(m.index))
	for k := range m.index {
		out[k] = struct{}{}
	}
	return out
}

// ClearGraph removes every quad in graph g.
func (m *MemStore) ClearGraph(_ context.Context, g string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterLocked(func(q rdf.Quad) bool { return q.Graph != g }), nil
}

// Clear removes everything.
func (m *MemStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quads = nil
	m.index = make(map[string]int)
	return nil
}

// Count returns the number of stored quads.
func (m *MemStore) Count(_ context.Context) (int, error) {
	return m.Len(), nil
}

// Len is Count without a context.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.quads)
}

// Stats returns totals per graph.
func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return statsOf(m.quads), nil
}

// Snapshot returns an independent copy of the store.
func (m *MemStore) Snapshot() *MemStore {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := &MemStore{
		quads: make([]rdf.Quad, len(m.quads)),
		index: make(map[string]int, len(m.index)),
	}
	copy(cp.quads, m.quads)
	for k, v := range m.index {
		cp.index[k] = v
	}
	return cp
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
