package ecs

import "fmt"

// EntityId encodes both the archetype ID (upper 32 bits) and the entity index (lower 32 bits).
// An entity's id changes when components are added or removed, because the entity moves to a
// different archetype. Hold an EntityRef to track an entity across such moves.
type EntityId uint64

// NewEntityId creates an EntityId from an archetype ID and entity index
func NewEntityId(archetypeId uint32, index uint32) EntityId {
	return EntityId(uint64(archetypeId)<<32 | uint64(index))
}

// ArchetypeId extracts the archetype ID from the entity ID
func (e EntityId) ArchetypeId() uint32 {
	return uint32(e >> 32)
}

// Index extracts the entity index from the entity ID
func (e EntityId) Index() uint32 {
	return uint32(e & 0xFFFFFFFF)
}

func (e EntityId) String() string {
	return fmt.Sprintf("%d:%d", e.ArchetypeId(), e.Index())
}

// EntityRef is a stable reference to an entity. The storage keeps Id current as the entity
// moves between archetypes and zeroes it when the entity is deleted.
type EntityRef struct {
	Id        EntityId
	Archetype *Archetype
}

// Dropper is implemented by components and singletons that hold external resources.
// Drop is called exactly once when the value is destroyed: its entity is deleted, the
// component is removed or replaced, or the singleton is removed. Moving an entity between
// archetypes is not a destruction and does not call Drop.
type Dropper interface {
	Drop()
}

// dropValue expects a pointer so that both value and pointer receivers are found.
func dropValue(v any) {
	if d, ok := v.(Dropper); ok {
		d.Drop()
	}
}
