package ecs

import (
	"iter"
	"reflect"
	"slices"
	"strings"
)

func byTypeName(a, b reflect.Type) int {
	return strings.Compare(a.String(), b.String())
}

// Archetype represents a unique combination of component types. Entities are
// stored in rows; a freed row is reused by the next insert, so rows of other
// entities never move.
type Archetype struct {
	id       uint32
	types    []reflect.Type
	columns  map[reflect.Type]int
	storages []iComponentStorage
	entities []EntityId
	freeRows []int
	count    int
}

// NewArchetype creates a new archetype with the given ID and sorted component types
func NewArchetype(id uint32, types []reflect.Type, registry *ComponentRegistry) *Archetype {
	a := &Archetype{
		id:       id,
		types:    types,
		columns:  make(map[reflect.Type]int, len(types)),
		storages: make([]iComponentStorage, len(types)),
	}

	for idx, typ := range types {
		factory := registry.getFactory(typ)
		if factory == nil {
			panic("component type " + typ.String() + " not registered")
		}
		a.columns[typ] = idx
		a.storages[idx] = factory()
	}

	return a
}

// insert places an entity and its components into a free row and returns it.
// components holds one value (T or *T) per archetype type.
func (a *Archetype) insert(id EntityId, components map[reflect.Type]any) int {
	var row int
	if n := len(a.freeRows); n > 0 {
		row = a.freeRows[n-1]
		a.freeRows = a.freeRows[:n-1]
		a.entities[row] = id
	} else {
		row = len(a.entities)
		a.entities = append(a.entities, id)
	}

	for typ, comp := range components {
		if col, ok := a.columns[typ]; ok {
			a.storages[col].Put(row, comp)
		}
	}
	a.count++
	return row
}

// remove clears every component in the row and frees it.
func (a *Archetype) remove(row int) {
	if row < 0 || row >= len(a.entities) || a.entities[row] == 0 {
		return
	}
	for _, storage := range a.storages {
		storage.Delete(row)
	}
	a.entities[row] = 0
	a.freeRows = append(a.freeRows, row)
	a.count--
}

// component returns a pointer to the component of the given type in row.
func (a *Archetype) component(row int, compType reflect.Type) any {
	col, ok := a.columns[compType]
	if !ok {
		return nil
	}
	return a.storages[col].Get(row)
}

// HasComponent checks if this archetype has the given component type
func (a *Archetype) HasComponent(compType reflect.Type) bool {
	_, ok := a.columns[compType]
	return ok
}

// ID returns the archetype's unique identifier
func (a *Archetype) ID() uint32 {
	return a.id
}

// Types returns the sorted component types for this archetype
func (a *Archetype) Types() []reflect.Type {
	return slices.Clone(a.types)
}

// Len returns the number of entities stored in this archetype.
func (a *Archetype) Len() int {
	return a.count
}

// Iter returns an iterator over all live entities and their rows in this archetype
func (a *Archetype) Iter() iter.Seq2[EntityId, int] {
	return func(yield func(EntityId, int) bool) {
		for row, id := range a.entities {
			if id == 0 {
				continue
			}
			if !yield(id, row) {
				return
			}
		}
	}
}
