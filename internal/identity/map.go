// Package identity implements the per-type identity map: at most one live
// record instance exists for any (type, id) pair, and every relationship
// reference to that pair points at the same instance.
package identity

import (
	"fmt"
	"sync"

	"github.com/sideload-dev/sideload/model"
)

// Map is the identity map. A bucket is pre-created for every registered
// type at construction, so touching an unregistered type is a programming
// error surfaced immediately rather than an empty lookup.
type Map struct {
	registry *model.Registry
	records  map[string]map[string]model.Record
	mu       sync.RWMutex
}

// NewMap creates an identity map with one empty bucket per registered type.
func NewMap(registry *model.Registry) *Map {
	records := make(map[string]map[string]model.Record, registry.Count())
	for _, typeName := range registry.Types() {
		records[typeName] = make(map[string]model.Record)
	}
	return &Map{
		registry: registry,
		records:  records,
	}
}

// GetOrCreate returns the live record for (typeName, id), constructing and
// storing a fresh instance via the registered constructor if none exists.
func (m *Map) GetOrCreate(typeName, id string) (model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.records[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrModelNotDefined, typeName)
	}
	if rec, ok := bucket[id]; ok {
		return rec, nil
	}

	def, err := m.registry.Definition(typeName)
	if err != nil {
		return nil, err
	}
	rec := def.New(id)
	bucket[id] = rec
	return rec, nil
}

// Lookup returns the live record for (typeName, id) if one exists. A false
// result for a registered type is a normal miss, not an error.
func (m *Map) Lookup(typeName, id string) (model.Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucket, ok := m.records[typeName]
	if !ok {
		return nil, false
	}
	rec, ok := bucket[id]
	return rec, ok
}

// All returns the live records of one type in unspecified order.
func (m *Map) All(typeName string) ([]model.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucket, ok := m.records[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrModelNotDefined, typeName)
	}
	out := make([]model.Record, 0, len(bucket))
	for _, rec := range bucket {
		out = append(out, rec)
	}
	return out, nil
}

// Len returns the number of live records of one type.
func (m *Map) Len(typeName string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records[typeName])
}

// Clear empties every bucket. The buckets themselves survive so the
// fail-fast guarantee for unregistered types is preserved.
func (m *Map) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for typeName := range m.records {
		m.records[typeName] = make(map[string]model.Record)
	}
}
