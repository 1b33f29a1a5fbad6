package ecs

// iComponentStorage is an interface for a type-erased component storage.
// Slots are addressed by archetype row; the archetype owns row allocation.
type iComponentStorage interface {
	Put(row int, item any) bool
	Delete(row int)
	Get(row int) any
	Has(row int) bool
}
