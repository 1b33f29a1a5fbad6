package snapshot

import (
	"iter"

	"github.com/kamstrup/intmap"
	"github.com/plus3/keepsake/ecs"
)

// EntityMap translates saved-space entity ids into live-space ids. It is
// filled while a snapshot is instantiated and frozen once the load finishes.
type EntityMap struct {
	ids    *intmap.Map[ecs.EntityId, ecs.EntityId]
	order  []ecs.EntityId
	frozen bool
}

// NewEntityMap creates an empty map sized for n entities.
func NewEntityMap(n int) *EntityMap {
	return &EntityMap{
		ids:   intmap.New[ecs.EntityId, ecs.EntityId](n),
		order: make([]ecs.EntityId, 0, n),
	}
}

// Insert records saved -> live. It panics once the map is frozen.
func (m *EntityMap) Insert(saved, live ecs.EntityId) {
	if m.frozen {
		panic("snapshot: insert into frozen EntityMap")
	}
	if !m.ids.Has(saved) {
		m.order = append(m.order, saved)
	}
	m.ids.Put(saved, live)
}

// Get returns the live id for a saved id.
func (m *EntityMap) Get(saved ecs.EntityId) (ecs.EntityId, bool) {
	return m.ids.Get(saved)
}

// Len returns the number of mapped ids.
func (m *EntityMap) Len() int {
	return m.ids.Len()
}

// All iterates saved -> live pairs in insertion order.
func (m *EntityMap) All() iter.Seq2[ecs.EntityId, ecs.EntityId] {
	return func(yield func(ecs.EntityId, ecs.EntityId) bool) {
		for _, saved := range m.order {
			live, _ := m.ids.Get(saved)
			if !yield(saved, live) {
				return
			}
		}
	}
}

// Freeze makes the map read-only.
func (m *EntityMap) Freeze() {
	m.frozen = true
}

// Frozen reports whether Freeze has been called.
func (m *EntityMap) Frozen() bool {
	return m.frozen
}
