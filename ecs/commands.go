package ecs

import (
	"reflect"

	"github.com/kamstrup/intmap"
)

// Commands provides a buffer for deferred ECS operations that are executed at the end of a frame.
// This prevents structural changes to the ECS storage during system execution.
type Commands struct {
	spawns  [][]any
	deletes []deleteCommand
	inserts []insertCommand
	removes []removeComponentCommand
	defers  []func()
}

func newCommands() *Commands {
	return &Commands{}
}

type deleteCommand struct {
	entity    EntityId
	recursive bool
}

type insertCommand struct {
	entity     EntityId
	components []any
}

type removeComponentCommand struct {
	entity   EntityId
	compType reflect.Type
}

// Defer queues a function to run after all structural commands are applied.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, fn)
}

// Spawn queues an entity spawn operation with the given components.
func (c *Commands) Spawn(components ...any) {
	c.spawns = append(c.spawns, components)
}

// Delete queues an entity deletion operation.
func (c *Commands) Delete(entity EntityId) {
	c.deletes = append(c.deletes, deleteCommand{entity: entity})
}

// DespawnRecursive queues deletion of an entity and all of its descendants.
func (c *Commands) DespawnRecursive(entity EntityId) {
	c.deletes = append(c.deletes, deleteCommand{entity: entity, recursive: true})
}

// AddComponent queues a component addition operation.
func (c *Commands) AddComponent(entity EntityId, components ...any) {
	c.inserts = append(c.inserts, insertCommand{entity: entity, components: components})
}

// RemoveComponent queues a component removal operation.
func (c *Commands) RemoveComponent(entity EntityId, compType reflect.Type) {
	c.removes = append(c.removes, removeComponentCommand{
		entity:   entity,
		compType: compType,
	})
}

// Flush applies all commands to the provided storage, resetting the buffer
// state. Operations on entities deleted earlier in the same flush are skipped.
func (c *Commands) Flush(storage *Storage) {
	deleted := intmap.NewSet[EntityId](len(c.deletes))

	for _, cmd := range c.deletes {
		if cmd.recursive {
			storage.DespawnRecursive(cmd.entity)
		} else {
			storage.Delete(cmd.entity)
		}
		deleted.Add(cmd.entity)
	}

	for _, cmd := range c.removes {
		if !deleted.Has(cmd.entity) {
			storage.RemoveComponent(cmd.entity, cmd.compType)
		}
	}

	for _, cmd := range c.inserts {
		if !deleted.Has(cmd.entity) {
			// Dead targets are dropped; a missing registration is a programming error.
			if err := storage.Insert(cmd.entity, cmd.components...); err != nil && storage.Alive(cmd.entity) {
				panic(err)
			}
		}
	}

	for _, components := range c.spawns {
		storage.Spawn(components...)
	}

	// Deferred functions may queue further commands; run them on a snapshot.
	defers := c.defers
	c.spawns = c.spawns[:0]
	c.deletes = c.deletes[:0]
	c.inserts = c.inserts[:0]
	c.removes = c.removes[:0]
	c.defers = nil

	for _, fn := range defers {
		fn()
	}
}
