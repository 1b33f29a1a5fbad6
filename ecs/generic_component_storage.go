package ecs

import (
	"errors"
	"reflect"
)

// ErrNotRegistered is returned when a component type has not been registered
// with the storage's ComponentRegistry.
var ErrNotRegistered = errors.New("ecs: component type not registered")

// ComponentRegistry manages component type registration for an ECS instance.
// Each Storage instance has its own ComponentRegistry, allowing multiple
// independent ECS systems to coexist without interference.
type ComponentRegistry struct {
	factories map[reflect.Type]func() iComponentStorage
}

// NewComponentRegistry creates a new component registry. The hierarchy
// components Parent and Children are always registered.
func NewComponentRegistry() *ComponentRegistry {
	r := &ComponentRegistry{
		factories: make(map[reflect.Type]func() iComponentStorage),
	}
	RegisterComponent[Parent](r)
	RegisterComponent[Children](r)
	return r
}

// RegisterComponent registers a new component type with the given registry.
// This must be called for each component type before it can be used.
// Registering the same type twice is a no-op.
func RegisterComponent[T any](r *ComponentRegistry) {
	t := reflect.TypeFor[T]()
	if _, ok := r.factories[t]; ok {
		return
	}
	r.factories[t] = func() iComponentStorage {
		return &genericComponentStorage[T]{}
	}
}

// Registered reports whether t has been registered.
func (r *ComponentRegistry) Registered(t reflect.Type) bool {
	_, ok := r.factories[t]
	return ok
}

// getFactory returns the factory function for a given component type.
// Returns nil if the type is not registered.
func (r *ComponentRegistry) getFactory(t reflect.Type) func() iComponentStorage {
	return r.factories[t]
}

const (
	genericBlockSize = 64
)

// genericComponentStorage stores components of a specific type `T` in
// fixed-size blocks so pointers handed out by Get stay valid while the
// storage grows.
type genericComponentStorage[T any] struct {
	blocks []*[genericBlockSize]T
	filled []*[genericBlockSize]bool
}

func (cs *genericComponentStorage[T]) slot(row int) (int, int, bool) {
	if row < 0 {
		return 0, 0, false
	}
	blockIdx := row / genericBlockSize
	if blockIdx >= len(cs.blocks) {
		return blockIdx, row % genericBlockSize, false
	}
	return blockIdx, row % genericBlockSize, true
}

// Put stores a component (T or *T) at the given row, growing the storage as
// needed. Returns false if item has the wrong type.
func (cs *genericComponentStorage[T]) Put(row int, item any) bool {
	var value T
	switch v := item.(type) {
	case *T:
		value = *v
	case T:
		value = v
	default:
		return false
	}
	if row < 0 {
		return false
	}

	blockIdx, slotIdx, _ := cs.slot(row)
	for blockIdx >= len(cs.blocks) {
		cs.blocks = append(cs.blocks, new([genericBlockSize]T))
		cs.filled = append(cs.filled, new([genericBlockSize]bool))
	}

	cs.blocks[blockIdx][slotIdx] = value
	cs.filled[blockIdx][slotIdx] = true
	return true
}

// Get returns a pointer to the component at the given row.
func (cs *genericComponentStorage[T]) Get(row int) any {
	blockIdx, slotIdx, ok := cs.slot(row)
	if !ok || !cs.filled[blockIdx][slotIdx] {
		return nil
	}
	return &cs.blocks[blockIdx][slotIdx]
}

// Delete marks a component slot as empty and zeroes it.
func (cs *genericComponentStorage[T]) Delete(row int) {
	blockIdx, slotIdx, ok := cs.slot(row)
	if !ok || !cs.filled[blockIdx][slotIdx] {
		return
	}
	var zero T
	cs.filled[blockIdx][slotIdx] = false
	cs.blocks[blockIdx][slotIdx] = zero
}

// Has checks if a component exists at the given row.
func (cs *genericComponentStorage[T]) Has(row int) bool {
	blockIdx, slotIdx, ok := cs.slot(row)
	return ok && cs.filled[blockIdx][slotIdx]
}
