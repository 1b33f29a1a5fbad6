// Package filter decides which entities, component types and globals take
// part in a save or load.
package filter

import (
	"cmp"
	"reflect"
	"slices"

	"github.com/kamstrup/intmap"
	"github.com/plus3/keepsake/ecs"
)

// Selector resolves a set of live entities. Results are always in ascending
// id order so repeated saves of unchanged state are byte-identical.
type Selector interface {
	Select(storage *ecs.Storage) []ecs.EntityId
}

type mode uint8

const (
	allow mode = iota
	block
)

// EntityFilter selects entities by explicit id. Exactly one of Allow or Block
// is active.
type EntityFilter struct {
	mode mode
	ids  *intmap.Set[ecs.EntityId]
}

// Allow selects exactly the given live entities. Allow() selects nothing.
func Allow(ids ...ecs.EntityId) *EntityFilter {
	return newEntityFilter(allow, ids)
}

// Block selects every live entity except the given ones. Block() selects
// everything.
func Block(ids ...ecs.EntityId) *EntityFilter {
	return newEntityFilter(block, ids)
}

func newEntityFilter(m mode, ids []ecs.EntityId) *EntityFilter {
	set := intmap.NewSet[ecs.EntityId](len(ids))
	for _, id := range ids {
		set.Add(id)
	}
	return &EntityFilter{mode: m, ids: set}
}

// Contains reports whether id passes the filter, ignoring liveness.
func (f *EntityFilter) Contains(id ecs.EntityId) bool {
	return f.ids.Has(id) == (f.mode == allow)
}

// Select implements Selector. Allow walks only its own set; Block walks the
// store.
func (f *EntityFilter) Select(storage *ecs.Storage) []ecs.EntityId {
	if f.mode == allow {
		out := make([]ecs.EntityId, 0, f.ids.Len())
		f.ids.ForEach(func(id ecs.EntityId) bool {
			if storage.Alive(id) {
				out = append(out, id)
			}
			return true
		})
		slices.SortFunc(out, byIndex)
		return out
	}

	out := make([]ecs.EntityId, 0, storage.Len())
	for id := range storage.Entities() {
		if !f.ids.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// byIndex orders ids the way Storage.Entities yields them.
func byIndex(a, b ecs.EntityId) int {
	return cmp.Compare(a.Index(), b.Index())
}

type withSelector struct {
	types []reflect.Type
}

// With selects every live entity carrying T.
func With[T any]() Selector {
	return withSelector{types: []reflect.Type{reflect.TypeFor[T]()}}
}

// WithTypes selects every live entity carrying all of types.
func WithTypes(types ...reflect.Type) Selector {
	return withSelector{types: slices.Clone(types)}
}

func (w withSelector) Select(storage *ecs.Storage) []ecs.EntityId {
	var out []ecs.EntityId
	for id := range storage.Entities() {
		if w.matches(storage, id) {
			out = append(out, id)
		}
	}
	return out
}

func (w withSelector) matches(storage *ecs.Storage, id ecs.EntityId) bool {
	for _, t := range w.types {
		if !storage.HasComponent(id, t) {
			return false
		}
	}
	return true
}

type orSelector []Selector

// Or selects the union of its selectors.
func Or(selectors ...Selector) Selector {
	return orSelector(selectors)
}

func (o orSelector) Select(storage *ecs.Storage) []ecs.EntityId {
	seen := intmap.NewSet[ecs.EntityId](storage.Len())
	var out []ecs.EntityId
	for _, selector := range o {
		for _, id := range selector.Select(storage) {
			if !seen.Has(id) {
				seen.Add(id)
				out = append(out, id)
			}
		}
	}
	slices.SortFunc(out, byIndex)
	return out
}

// All selects every live entity.
func All() Selector {
	return Block()
}
