// Package mapper substitutes components with serializable stand-ins around a
// save, and turns the stand-ins back into real components after a load.
package mapper

import (
	"fmt"
	"reflect"

	"github.com/plus3/keepsake/ecs"
)

type rule struct {
	in, out reflect.Type
	fn      func(in any) any
}

// Mapper is an ordered list of per-type rules. Rules run in registration order
// and see whatever earlier rules attached, so rules can be chained. A nil
// *Mapper is valid and maps nothing.
type Mapper struct {
	rules []rule
}

// New returns an empty mapper.
func New() *Mapper {
	return &Mapper{}
}

// Map registers fn as the rule for In, producing Out. Registering In again
// replaces its rule but keeps its position in the execution order.
func Map[In, Out any](m *Mapper, fn func(*In) Out) *Mapper {
	r := rule{
		in:  reflect.TypeFor[In](),
		out: reflect.TypeFor[Out](),
		fn: func(in any) any {
			return fn(in.(*In))
		},
	}
	for i := range m.rules {
		if m.rules[i].in == r.in {
			m.rules[i] = r
			return m
		}
	}
	m.rules = append(m.rules, r)
	return m
}

// Len returns the number of rules.
func (m *Mapper) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}

// Targets returns the output type of every rule in execution order.
func (m *Mapper) Targets() []reflect.Type {
	if m == nil {
		return nil
	}
	out := make([]reflect.Type, len(m.rules))
	for i, r := range m.rules {
		out[i] = r.out
	}
	return out
}

// Apply attaches the surrogate of every mapped component present on id. The
// source components are left untouched.
func (m *Mapper) Apply(storage *ecs.Storage, id ecs.EntityId) error {
	if m == nil {
		return nil
	}
	for _, r := range m.rules {
		ptr := storage.GetComponent(id, r.in)
		if ptr == nil {
			continue
		}
		if err := storage.Insert(id, r.fn(ptr)); err != nil {
			return fmt.Errorf("map %s -> %s: %w", r.in, r.out, err)
		}
	}
	return nil
}

// Replace is like Apply but consumes the source component.
func (m *Mapper) Replace(storage *ecs.Storage, id ecs.EntityId) error {
	if m == nil {
		return nil
	}
	for _, r := range m.rules {
		value := storage.TakeComponent(id, r.in)
		if value == nil {
			continue
		}
		ptr := reflect.New(r.in)
		ptr.Elem().Set(reflect.ValueOf(value))
		if err := storage.Insert(id, r.fn(ptr.Interface())); err != nil {
			return fmt.Errorf("map %s -> %s: %w", r.in, r.out, err)
		}
	}
	return nil
}

// Undo removes every surrogate type from id.
func (m *Mapper) Undo(storage *ecs.Storage, id ecs.EntityId) {
	if m == nil {
		return
	}
	for _, r := range m.rules {
		storage.RemoveComponent(id, r.out)
	}
}
