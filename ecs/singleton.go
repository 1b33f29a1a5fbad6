package ecs

import (
	"iter"
	"reflect"
	"slices"
)

// AddSingleton stores a global value (T or *T) not associated with any
// entity. An existing singleton of the same type is overwritten in place, so
// pointers obtained earlier remain valid.
func (s *Storage) AddSingleton(value any) {
	t := reflect.TypeOf(value)
	v := reflect.ValueOf(value)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
		v = v.Elem()
	}

	if existing, ok := s.singletons[t]; ok {
		existing.Elem().Set(v)
		return
	}
	ptr := reflect.New(t)
	ptr.Elem().Set(v)
	s.singletons[t] = ptr
}

// GetSingleton returns a pointer to the singleton of the given type, or nil.
func (s *Storage) GetSingleton(t reflect.Type) any {
	ptr, ok := s.singletons[t]
	if !ok {
		return nil
	}
	return ptr.Interface()
}

// RemoveSingleton drops the singleton of the given type.
func (s *Storage) RemoveSingleton(t reflect.Type) bool {
	if _, ok := s.singletons[t]; !ok {
		return false
	}
	delete(s.singletons, t)
	return true
}

// Singletons iterates all singletons ordered by type name. Values are pointers.
func (s *Storage) Singletons() iter.Seq2[reflect.Type, any] {
	types := make([]reflect.Type, 0, len(s.singletons))
	for t := range s.singletons {
		types = append(types, t)
	}
	slices.SortFunc(types, byTypeName)

	return func(yield func(reflect.Type, any) bool) {
		for _, t := range types {
			ptr, ok := s.singletons[t]
			if !ok {
				continue
			}
			if !yield(t, ptr.Interface()) {
				return
			}
		}
	}
}

// Singleton provides typed access to a single component instance
// that is not associated with any entity. Use this for global game state,
// configuration, or other singleton data.
type Singleton[T any] struct {
	storage *Storage
}

// NewSingleton creates a new Singleton accessor for the given storage.
// If initializer is provided and the singleton doesn't exist in storage,
// it will be created with the initializer value. Otherwise, a zero value is used.
// This guarantees the singleton exists in storage after the call.
func NewSingleton[T any](storage *Storage, initializer ...T) *Singleton[T] {
	if storage.GetSingleton(reflect.TypeFor[T]()) == nil {
		var value T
		if len(initializer) > 0 {
			value = initializer[0]
		}
		storage.AddSingleton(value)
	}
	return &Singleton[T]{storage: storage}
}

// Init binds the Singleton to a storage, creating a zero value if missing.
// This is called automatically by the Scheduler during system registration.
func (s *Singleton[T]) Init(storage *Storage) {
	s.storage = storage
	if storage.GetSingleton(reflect.TypeFor[T]()) == nil {
		var zero T
		storage.AddSingleton(zero)
	}
}

// Get returns a pointer to the singleton component.
// Returns nil if the singleton has not been added to storage.
func (s *Singleton[T]) Get() *T {
	if s.storage == nil {
		return nil
	}
	ptr, _ := s.storage.GetSingleton(reflect.TypeFor[T]()).(*T)
	return ptr
}

// Exists returns true if the singleton component has been added to storage
func (s *Singleton[T]) Exists() bool {
	return s.Get() != nil
}
