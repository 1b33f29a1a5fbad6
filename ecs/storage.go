package ecs

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
	"slices"
)

// ErrEntityNotFound is returned when an operation targets a dead or stale id.
var ErrEntityNotFound = errors.New("ecs: entity not found")

// entityRecord locates a live entity. A nil archetype marks a free slot.
type entityRecord struct {
	generation uint32
	archetype  *Archetype
	row        int
}

// Storage is the main ECS storage interface
type Storage struct {
	records    []entityRecord
	free       []uint32
	alive      int
	archetypes map[uint32]*Archetype
	registry   *ComponentRegistry
	singletons map[reflect.Type]reflect.Value
}

// NewStorage creates a new ECS storage system with the given component registry
func NewStorage(registry *ComponentRegistry) *Storage {
	return &Storage{
		archetypes: make(map[uint32]*Archetype),
		registry:   registry,
		singletons: make(map[reflect.Type]reflect.Value),
	}
}

// Registry returns the component registry backing this storage.
func (s *Storage) Registry() *ComponentRegistry {
	return s.registry
}

func (s *Storage) allocate() EntityId {
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		idx = uint32(len(s.records))
		s.records = append(s.records, entityRecord{generation: 1})
	}
	s.alive++
	return NewEntityId(idx, s.records[idx].generation)
}

func (s *Storage) record(id EntityId) *entityRecord {
	idx := id.Index()
	if int(idx) >= len(s.records) {
		return nil
	}
	rec := &s.records[idx]
	if rec.archetype == nil || rec.generation != id.Generation() {
		return nil
	}
	return rec
}

func (s *Storage) archetypeFor(types []reflect.Type) *Archetype {
	archetypeId := hashTypesToUint32(types)
	archetype, exists := s.archetypes[archetypeId]
	if !exists {
		archetype = NewArchetype(archetypeId, types, s.registry)
		s.archetypes[archetypeId] = archetype
	}
	return archetype
}

// GetArchetype returns an archetype storage (if one exists)
func (s *Storage) GetArchetype(components ...any) *Archetype {
	types := make([]reflect.Type, 0, len(components))
	for _, comp := range components {
		types = append(types, componentType(comp))
	}
	return s.GetArchetypeByTypes(types)
}

// GetArchetypeByTypes returns an archetype storage (if one exists) based on reflect.Type
func (s *Storage) GetArchetypeByTypes(types []reflect.Type) *Archetype {
	types = slices.Clone(types)
	slices.SortFunc(types, byTypeName)
	return s.archetypes[hashTypesToUint32(types)]
}

// Spawn creates a new entity with the provided components
func (s *Storage) Spawn(components ...any) EntityId {
	if len(components) == 0 {
		panic("cannot spawn entity without components")
	}
	for _, comp := range components {
		if t := componentType(comp); !s.registry.Registered(t) {
			panic("component type " + t.String() + " not registered")
		}
	}

	id := s.SpawnEmpty()
	if err := s.Insert(id, components...); err != nil {
		panic(err)
	}
	return id
}

// SpawnEmpty creates a new entity without any components.
func (s *Storage) SpawnEmpty() EntityId {
	id := s.allocate()
	archetype := s.archetypeFor(nil)
	rec := &s.records[id.Index()]
	rec.archetype = archetype
	rec.row = archetype.insert(id, nil)
	return id
}

// Delete removes all data related to the entity ID. Children are left in
// place; see DespawnRecursive.
func (s *Storage) Delete(id EntityId) {
	rec := s.record(id)
	if rec == nil {
		return
	}
	rec.archetype.remove(rec.row)
	rec.archetype = nil
	rec.row = -1
	rec.generation++
	if rec.generation == 0 {
		rec.generation = 1
	}
	s.free = append(s.free, id.Index())
	s.alive--
}

// Alive reports whether id refers to a live entity.
func (s *Storage) Alive(id EntityId) bool {
	return s.record(id) != nil
}

// Len returns the number of live entities.
func (s *Storage) Len() int {
	return s.alive
}

// Entities iterates all live entities in ascending index order.
func (s *Storage) Entities() iter.Seq[EntityId] {
	return func(yield func(EntityId) bool) {
		for idx := range s.records {
			rec := &s.records[idx]
			if rec.archetype == nil {
				continue
			}
			if !yield(NewEntityId(uint32(idx), rec.generation)) {
				return
			}
		}
	}
}

// Components returns the component types of an entity sorted by type name.
func (s *Storage) Components(id EntityId) []reflect.Type {
	rec := s.record(id)
	if rec == nil {
		return nil
	}
	return rec.archetype.Types()
}

// Insert adds or overwrites components on an existing entity, moving it to
// its new archetype at most once. Nothing is changed if any component type is
// not registered.
func (s *Storage) Insert(id EntityId, components ...any) error {
	rec := s.record(id)
	if rec == nil {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}

	added := make(map[reflect.Type]any, len(components))
	for _, comp := range components {
		t := componentType(comp)
		if !s.registry.Registered(t) {
			return fmt.Errorf("%w: %s", ErrNotRegistered, t)
		}
		added[t] = comp
	}

	old := rec.archetype
	var newTypes []reflect.Type
	for t := range added {
		if !old.HasComponent(t) {
			newTypes = append(newTypes, t)
		}
	}

	if len(newTypes) == 0 {
		for t, comp := range added {
			old.storages[old.columns[t]].Put(rec.row, comp)
		}
		return nil
	}

	types := make([]reflect.Type, 0, len(old.types)+len(newTypes))
	types = append(types, old.types...)
	types = append(types, newTypes...)
	slices.SortFunc(types, byTypeName)

	values := make(map[reflect.Type]any, len(types))
	for _, t := range old.types {
		values[t] = old.component(rec.row, t)
	}
	for t, comp := range added {
		values[t] = comp
	}

	s.move(rec, id, s.archetypeFor(types), values)
	return nil
}

// move copies values into a fresh row of target and frees the old row.
func (s *Storage) move(rec *entityRecord, id EntityId, target *Archetype, values map[reflect.Type]any) {
	row := target.insert(id, values)
	rec.archetype.remove(rec.row)
	rec.archetype = target
	rec.row = row
}

// AddComponent adds a single component to an entity.
func (s *Storage) AddComponent(id EntityId, component any) error {
	return s.Insert(id, component)
}

// RemoveComponent detaches a component. The entity stays alive even when its
// last component is removed. Returns false if the component was not present.
func (s *Storage) RemoveComponent(id EntityId, compType reflect.Type) bool {
	rec := s.record(id)
	if rec == nil || !rec.archetype.HasComponent(compType) {
		return false
	}

	old := rec.archetype
	types := make([]reflect.Type, 0, len(old.types)-1)
	values := make(map[reflect.Type]any, len(old.types)-1)
	for _, t := range old.types {
		if t == compType {
			continue
		}
		types = append(types, t)
		values[t] = old.component(rec.row, t)
	}

	s.move(rec, id, s.archetypeFor(types), values)
	return true
}

// TakeComponent removes a component and returns its value (not a pointer into
// storage). Returns nil if the entity does not carry the component.
func (s *Storage) TakeComponent(id EntityId, compType reflect.Type) any {
	ptr := s.GetComponent(id, compType)
	if ptr == nil {
		return nil
	}
	value := reflect.ValueOf(ptr).Elem().Interface()
	s.RemoveComponent(id, compType)
	return value
}

// GetComponent returns a pointer to the component for the given entity ID and
// component type, or nil.
func (s *Storage) GetComponent(id EntityId, compType reflect.Type) any {
	rec := s.record(id)
	if rec == nil {
		return nil
	}
	return rec.archetype.component(rec.row, compType)
}

// HasComponent checks if an entity has a specific component type
func (s *Storage) HasComponent(id EntityId, compType reflect.Type) bool {
	rec := s.record(id)
	if rec == nil {
		return false
	}
	return rec.archetype.HasComponent(compType)
}

// componentType returns the value type of a component, dereferencing one
// level of pointer.
func componentType(comp any) reflect.Type {
	compType := reflect.TypeOf(comp)
	if compType == nil {
		panic("component cannot be nil")
	}
	if compType.Kind() == reflect.Ptr {
		compType = compType.Elem()
	}

	// Components can be structs or primitives (int, string, etc.)
	// But not pointers, maps, channels, or functions (those aren't value types)
	switch compType.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func:
		panic("components cannot be pointers, maps, channels, or functions")
	}
	return compType
}

// hashTypesToUint32 generates a uint32 hash for a sorted slice of types
func hashTypesToUint32(types []reflect.Type) uint32 {
	var h uint32 = 2166136261     // FNV-1a 32-bit offset basis
	const prime uint32 = 16777619 // FNV-1a 32-bit prime

	for _, t := range types {
		// The *rtype address is unique per type within a process.
		ptr := uint64(reflect.ValueOf(t).Pointer())
		h ^= uint32(ptr) ^ uint32(ptr>>32)
		h *= prime
	}

	return h
}

type ComponentReader interface {
	GetComponent(EntityId, reflect.Type) any
}

// ReadComponent returns a typed pointer to an entity's component, or nil.
func ReadComponent[T any](reader ComponentReader, entityId EntityId) *T {
	ptr, _ := reader.GetComponent(entityId, reflect.TypeFor[T]()).(*T)
	return ptr
}
