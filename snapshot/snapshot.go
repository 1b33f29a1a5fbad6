// Package snapshot holds the serialization-ready form of a filtered entity
// graph, the registry that turns live component values into serialized
// attachment values and back, and the codecs that move snapshots to bytes.
package snapshot

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/plus3/keepsake/ecs"
)

// TypeKey is the stable identifier of a persisted component or global type.
// It is the lookup key in filters and in the wire format.
type TypeKey string

// Attachments maps type keys to serialized values.
type Attachments map[TypeKey]json.RawMessage

// Keys returns the type keys in ascending order.
func (a Attachments) Keys() []TypeKey {
	return slices.Sorted(maps.Keys(a))
}

// Entity is one saved entity. Id lives in saved space: it is only meaningful
// for resolving references inside the same snapshot.
type Entity struct {
	Id         ecs.EntityId `json:"id"`
	Components Attachments  `json:"components"`
}

// Snapshot is an ordered list of saved entities plus global values. Entity
// order is the save order and is preserved by every codec.
type Snapshot struct {
	Globals  Attachments `json:"globals"`
	Entities []Entity    `json:"entities"`
}

// New returns an empty snapshot with room for n entities.
func New(n int) *Snapshot {
	return &Snapshot{
		Globals:  make(Attachments),
		Entities: make([]Entity, 0, n),
	}
}

// Len returns the number of entities.
func (s *Snapshot) Len() int {
	return len(s.Entities)
}

// CountByKey returns how many entities carry each type key.
func (s *Snapshot) CountByKey() map[TypeKey]int {
	counts := make(map[TypeKey]int)
	for _, entity := range s.Entities {
		for key := range entity.Components {
			counts[key]++
		}
	}
	return counts
}
