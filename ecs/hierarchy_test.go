package ecs_test

import (
	"testing"

	"github.com/plus3/keepsake/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetParent(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	parent := storage.Spawn(Name{Value: "parent"})
	a := storage.Spawn(Name{Value: "a"})
	b := storage.Spawn(Name{Value: "b"})
	require.NoError(t, storage.SetParent(a, parent))
	require.NoError(t, storage.SetParent(b, parent))

	assert.Equal(t, []ecs.EntityId{a, b}, ecs.ReadComponent[ecs.Children](storage, parent).Ids)
	assert.Equal(t, parent, ecs.ReadComponent[ecs.Parent](storage, a).Id)
	assert.Equal(t, parent, ecs.ReadComponent[ecs.Parent](storage, b).Id)
}

func TestSetParentMovesChild(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	first := storage.Spawn(Name{})
	second := storage.Spawn(Name{})
	child := storage.Spawn(Name{})
	require.NoError(t, storage.SetParent(child, first))
	require.NoError(t, storage.SetParent(child, second))

	assert.Empty(t, ecs.ReadComponent[ecs.Children](storage, first).Ids)
	assert.Equal(t, []ecs.EntityId{child}, ecs.ReadComponent[ecs.Children](storage, second).Ids)
	assert.Equal(t, second, ecs.ReadComponent[ecs.Parent](storage, child).Id)
}

func TestSetParentDeadEntity(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	parent := storage.Spawn(Name{})
	child := storage.Spawn(Name{})
	storage.Delete(parent)

	assert.ErrorIs(t, storage.SetParent(child, parent), ecs.ErrEntityNotFound)
}

func TestDespawnRecursive(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	root := storage.Spawn(Name{Value: "root"})
	mid := storage.Spawn(Name{Value: "mid"})
	leaf := storage.Spawn(Name{Value: "leaf"})
	sibling := storage.Spawn(Name{Value: "sibling"})
	other := storage.Spawn(Name{Value: "other"})
	require.NoError(t, storage.SetParent(mid, root))
	require.NoError(t, storage.SetParent(leaf, mid))
	require.NoError(t, storage.SetParent(sibling, root))

	storage.DespawnRecursive(mid)

	assert.False(t, storage.Alive(mid))
	assert.False(t, storage.Alive(leaf))
	assert.True(t, storage.Alive(root))
	assert.True(t, storage.Alive(sibling))
	assert.True(t, storage.Alive(other))
	assert.Equal(t, []ecs.EntityId{sibling}, ecs.ReadComponent[ecs.Children](storage, root).Ids)

	storage.DespawnRecursive(root)
	assert.Equal(t, 1, storage.Len())
}
