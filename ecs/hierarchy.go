package ecs

import (
	"reflect"
	"slices"
)

// Parent points at the structural parent of an entity.
type Parent struct {
	Id EntityId
}

// MapEntities implements Remappable.
func (p *Parent) MapEntities(m EntityMapper) {
	p.Id = m.MapOrReserve(p.Id)
}

// Children lists the structural children of an entity in insertion order.
type Children struct {
	Ids []EntityId
}

// MapEntities implements Remappable.
func (c *Children) MapEntities(m EntityMapper) {
	for i, id := range c.Ids {
		c.Ids[i] = m.MapOrReserve(id)
	}
}

var parentType = reflect.TypeFor[Parent]()

// SetParent attaches child under parent, detaching it from any previous
// parent first.
func (s *Storage) SetParent(child, parent EntityId) error {
	if !s.Alive(child) || !s.Alive(parent) {
		return ErrEntityNotFound
	}
	s.detach(child)

	if err := s.Insert(child, Parent{Id: parent}); err != nil {
		return err
	}
	if children := ReadComponent[Children](s, parent); children != nil {
		children.Ids = append(children.Ids, child)
		return nil
	}
	return s.Insert(parent, Children{Ids: []EntityId{child}})
}

// detach removes child from its parent's Children list and drops its Parent.
func (s *Storage) detach(child EntityId) {
	parent := ReadComponent[Parent](s, child)
	if parent == nil {
		return
	}
	if children := ReadComponent[Children](s, parent.Id); children != nil {
		children.Ids = slices.DeleteFunc(children.Ids, func(id EntityId) bool { return id == child })
	}
	s.RemoveComponent(child, parentType)
}

// DespawnRecursive deletes an entity together with all of its descendants and
// removes it from its parent's Children.
func (s *Storage) DespawnRecursive(id EntityId) {
	if !s.Alive(id) {
		return
	}
	s.detach(id)
	s.despawnTree(id)
}

func (s *Storage) despawnTree(id EntityId) {
	if children := ReadComponent[Children](s, id); children != nil {
		for _, child := range slices.Clone(children.Ids) {
			if s.Alive(child) {
				s.despawnTree(child)
			}
		}
	}
	s.Delete(id)
}
