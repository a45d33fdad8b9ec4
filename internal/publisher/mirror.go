package publisher

import (
	"context"
	"sync"

	"github.com/0xAF/owrx-markers/internal/marker"
)

// Operation is one call recorded by Mirror
type Operation struct {
	Op       Op
	ID       string
	Category string
	Expiry   marker.Expiry
}

// Mirror keeps an in-memory copy of the map and a log of every operation
type Mirror struct {
	mu         sync.RWMutex
	markers    map[string]*marker.Marker
	categories map[string]string
	ops        []Operation
}

// NewMirror creates an empty mirror
func NewMirror() *Mirror {
	return &Mirror{
		markers:    make(map[string]*marker.Marker),
		categories: make(map[string]string),
	}
}

// Update stores the marker under id
func (m *Mirror) Update(_ context.Context, id string, mk *marker.Marker, category string, exp marker.Expiry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.markers[id] = mk
	m.categories[id] = category
	m.ops = append(m.ops, Operation{Op: OpUpdate, ID: id, Category: category, Expiry: exp})
}

// Remove deletes the marker stored under id
func (m *Mirror) Remove(_ context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.markers, id)
	delete(m.categories, id)
	m.ops = append(m.ops, Operation{Op: OpRemove, ID: id})
}

// Get returns the marker currently shown under id
func (m *Mirror) Get(id string) (*marker.Marker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mk, ok := m.markers[id]
	return mk, ok
}

// Len returns the number of markers on the map
func (m *Mirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.markers)
}

// Markers returns a copy of the map contents
func (m *Mirror) Markers() marker.Set {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := make(marker.Set, len(m.markers))
	for id, mk := range m.markers {
		set[id] = mk
	}
	return set
}

// Operations returns the recorded operations in call order
func (m *Mirror) Operations() []Operation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ops := make([]Operation, len(m.ops))
	copy(ops, m.ops)
	return ops
}

// Reset forgets recorded operations, keeping the map contents
func (m *Mirror) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = nil
}
