package ecs_test

import (
	"reflect"
	"testing"

	"github.com/plus3/keepsake/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spawnSystem struct{}

func (s *spawnSystem) Execute(frame *ecs.UpdateFrame) {
	frame.Commands.Spawn(Position{X: 1, Y: 2}, Velocity{DX: 0.5, DY: 0.5})
	frame.Commands.Spawn(Position{X: 3, Y: 4})
}

type mixedSystem struct {
	entity ecs.EntityId
}

func (s *mixedSystem) Execute(frame *ecs.UpdateFrame) {
	frame.Commands.Spawn(Position{X: 10, Y: 20})
	frame.Commands.AddComponent(s.entity, Velocity{DX: 1, DY: 1})
	frame.Commands.Delete(s.entity)
}

type deferSystem struct {
	seen int
}

func (s *deferSystem) Execute(frame *ecs.UpdateFrame) {
	frame.Commands.Spawn(Name{Value: "queued"})
	frame.Commands.Defer(func() {
		s.seen = frame.Storage.Len()
	})
}

func TestCommandsDeferSpawn(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	scheduler := ecs.NewScheduler(storage)
	scheduler.Register(&spawnSystem{})

	assert.Equal(t, 0, storage.Len())
	scheduler.Once(0.016)
	assert.Equal(t, 2, storage.Len())
	assert.Equal(t, 1, storage.GetArchetype(Position{}, Velocity{}).Len())
	assert.Equal(t, 1, storage.GetArchetype(Position{}).Len())
}

func TestCommandsSkipDeletedEntities(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	id := storage.Spawn(Position{X: 1, Y: 1})

	scheduler := ecs.NewScheduler(storage)
	scheduler.Register(&mixedSystem{entity: id})
	scheduler.Once(0.016)

	assert.False(t, storage.Alive(id))
	assert.Equal(t, 1, storage.Len())
	assert.Nil(t, storage.GetArchetype(Position{}, Velocity{}))
}

func TestCommandsRemoveComponent(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	id := storage.Spawn(Position{}, Velocity{DX: 1})

	var cmds ecs.Commands
	cmds.RemoveComponent(id, reflect.TypeFor[Velocity]())
	assert.True(t, storage.HasComponent(id, velocityType))

	cmds.Flush(storage)
	assert.False(t, storage.HasComponent(id, velocityType))
	assert.True(t, storage.Alive(id))
}

func TestCommandsDespawnRecursive(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	parent := storage.Spawn(Name{Value: "parent"})
	child := storage.Spawn(Name{Value: "child"})
	require.NoError(t, storage.SetParent(child, parent))

	var cmds ecs.Commands
	cmds.DespawnRecursive(parent)
	cmds.Flush(storage)

	assert.Equal(t, 0, storage.Len())
}

func TestCommandsDefersRunAfterStructuralChanges(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	system := &deferSystem{}
	scheduler := ecs.NewScheduler(storage)
	scheduler.Register(system)

	scheduler.Once(0.016)
	assert.Equal(t, 1, system.seen)

	scheduler.Once(0.016)
	assert.Equal(t, 2, system.seen)
}

func TestCommandsFlushResets(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	var cmds ecs.Commands
	calls := 0
	cmds.Spawn(Score(1))
	cmds.Defer(func() { calls++ })
	cmds.Flush(storage)
	cmds.Flush(storage)

	assert.Equal(t, 1, storage.Len())
	assert.Equal(t, 1, calls)
}
