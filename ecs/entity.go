package ecs

import "fmt"

// EntityId encodes the entity index (lower 32 bits) and the generation of that
// index (upper 32 bits). The generation is bumped every time the index is
// freed, so a stale id never aliases a newer entity reusing the same slot.
//
// Generations start at 1, which keeps EntityId(0) free as the null id.
type EntityId uint64

// NewEntityId creates an EntityId from an index and a generation
func NewEntityId(index uint32, generation uint32) EntityId {
	return EntityId(uint64(generation)<<32 | uint64(index))
}

// Index extracts the slot index from the entity ID
func (e EntityId) Index() uint32 {
	return uint32(e & 0xFFFFFFFF)
}

// Generation extracts the generation counter from the entity ID
func (e EntityId) Generation() uint32 {
	return uint32(e >> 32)
}

// IsNull reports whether e is the null id.
func (e EntityId) IsNull() bool {
	return e == 0
}

func (e EntityId) String() string {
	if e == 0 {
		return "null"
	}
	return fmt.Sprintf("%dv%d", e.Index(), e.Generation())
}

// EntityMapper translates entity ids from one id space into another. The load
// pipeline hands one to every component implementing Remappable so references
// saved under old ids point at the freshly spawned entities.
type EntityMapper interface {
	// Map returns the translated id and whether the id was known. The null id
	// always maps to itself.
	Map(id EntityId) (EntityId, bool)

	// MapOrReserve is like Map but reserves a placeholder entity for
	// unknown ids, so every occurrence of the same unknown id resolves to the
	// same placeholder.
	MapOrReserve(id EntityId) EntityId
}

// Remappable is implemented by components (on their pointer receiver) that
// hold references to other entities.
type Remappable interface {
	MapEntities(m EntityMapper)
}
