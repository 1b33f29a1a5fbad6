package load

import (
	"github.com/plus3/keepsake/ecs"
	"github.com/plus3/keepsake/snapshot"
)

// entityMapper resolves saved ids through the load's EntityMap. Unknown ids
// get one placeholder each, recorded in the map and in dangling. Placeholders
// carry only the Unload marker so the next default load clears them.
type entityMapper struct {
	storage  *ecs.Storage
	emap     *snapshot.EntityMap
	dangling []ecs.EntityId
}

func (m *entityMapper) Map(id ecs.EntityId) (ecs.EntityId, bool) {
	if id.IsNull() {
		return id, true
	}
	return m.emap.Get(id)
}

func (m *entityMapper) MapOrReserve(id ecs.EntityId) ecs.EntityId {
	if live, ok := m.Map(id); ok {
		return live
	}
	placeholder := m.storage.Spawn(Unload{})
	m.emap.Insert(id, placeholder)
	m.dangling = append(m.dangling, id)
	return placeholder
}
