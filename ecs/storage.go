package ecs

import (
	"reflect"
	"sort"
	"unsafe"
	"weak"
)

// Storage is the main ECS storage interface
type Storage struct {
	archetypes map[uint32]*Archetype
	registry   *ComponentRegistry

	singletons   map[reflect.Type]*singletonEntry
	singletonGen uint64
}

type singletonEntry struct {
	value   reflect.Value
	dataPtr unsafe.Pointer
}

// NewStorage creates a new ECS storage system with the given component registry
func NewStorage(registry *ComponentRegistry) *Storage {
	return &Storage{
		archetypes: make(map[uint32]*Archetype),
		registry:   registry,
		singletons: make(map[reflect.Type]*singletonEntry),
	}
}

// Registry returns the component registry backing this storage.
func (s *Storage) Registry() *ComponentRegistry {
	return s.registry
}

func (s *Storage) CreateEntityRef(id EntityId) *EntityRef {
	archetype := s.archetypes[id.ArchetypeId()]
	if archetype == nil || !archetype.Alive(id.Index()) {
		return nil
	}

	if weakPtr, ok := archetype.refs.Get(id); ok {
		if ref := weakPtr.Value(); ref != nil {
			return ref
		}
		archetype.refs.Del(id)
	}

	ref := &EntityRef{
		Id:        id,
		Archetype: archetype,
	}
	archetype.refs.Put(id, weak.Make(ref))

	return ref
}

func (s *Storage) ResolveEntityRef(ref *EntityRef) (EntityId, bool) {
	if ref == nil || ref.Id == 0 {
		return 0, false
	}
	return ref.Id, true
}

func (s *Storage) InvalidateEntityRef(ref *EntityRef) bool {
	if ref == nil || ref.Id == 0 {
		return false
	}

	if archetype := s.archetypes[ref.Id.ArchetypeId()]; archetype != nil {
		archetype.refs.Del(ref.Id)
	}

	ref.Id = 0
	ref.Archetype = nil
	return true
}

// GetArchetype returns an archetype storage (if one exists)
func (s *Storage) GetArchetype(components ...any) *Archetype {
	types := extractComponentTypes(components)
	return s.archetypes[hashTypesToUint32(types)]
}

// Spawn creates a new entity with the provided components
func (s *Storage) Spawn(components ...any) EntityId {
	if len(components) == 0 {
		panic("cannot spawn entity without components")
	}

	types := extractComponentTypes(components)
	archetype := s.archetypeFor(types)

	entityIndex := archetype.Spawn(components)
	return NewEntityId(archetype.id, entityIndex)
}

func (s *Storage) archetypeFor(sortedTypes []reflect.Type) *Archetype {
	archetypeId := hashTypesToUint32(sortedTypes)
	archetype, exists := s.archetypes[archetypeId]
	if !exists {
		archetype = NewArchetype(archetypeId, sortedTypes, s.registry)
		s.archetypes[archetypeId] = archetype
	}
	return archetype
}

// Alive reports whether id refers to a live entity.
func (s *Storage) Alive(id EntityId) bool {
	archetype, ok := s.archetypes[id.ArchetypeId()]
	return ok && archetype.Alive(id.Index())
}

// Delete removes all data related to the entity ID, dropping components that
// implement Dropper.
func (s *Storage) Delete(id EntityId) {
	archetype, ok := s.archetypes[id.ArchetypeId()]
	if !ok {
		return
	}
	archetype.Delete(id.Index())
}

// Clear deletes every entity and removes every singleton, dropping values that implement
// Dropper. Singletons are dropped after entities.
func (s *Storage) Clear() {
	for _, archetype := range s.archetypes {
		var ids []EntityId
		for id := range archetype.Iter() {
			ids = append(ids, id)
		}
		for _, id := range ids {
			archetype.Delete(id.Index())
		}
	}

	singletons := s.singletons
	s.singletons = make(map[reflect.Type]*singletonEntry)
	s.singletonGen++
	for _, entry := range singletons {
		dropValue(entry.value.Interface())
	}
}

// AddComponent adds a component to a live entity and returns its new id. Adding a
// component type the entity already has replaces the old value in place (dropping it)
// and keeps the id. Returns 0 if the entity is not alive.
func (s *Storage) AddComponent(id EntityId, component any) EntityId {
	if !s.Alive(id) {
		return 0
	}
	oldArchetype := s.archetypes[id.ArchetypeId()]

	compType := reflect.TypeOf(component)
	if compType.Kind() == reflect.Ptr {
		compType = compType.Elem()
	}

	if oldArchetype.HasComponent(compType) {
		oldArchetype.SetComponent(id.Index(), component)
		return id
	}

	newTypes := make([]reflect.Type, 0, len(oldArchetype.types)+1)
	newTypes = append(newTypes, oldArchetype.types...)
	newTypes = append(newTypes, compType)
	sort.Sort(byTypeName(newTypes))

	components := make([]any, 0, len(newTypes))
	for _, typ := range newTypes {
		if typ == compType {
			components = append(components, component)
		} else {
			components = append(components, oldArchetype.GetComponent(id.Index(), typ))
		}
	}

	return s.move(id, oldArchetype, s.archetypeFor(newTypes), components, nil)
}

// RemoveComponent removes a component from an entity, dropping it, and returns the
// entity's new id. Removing the last component deletes the entity and returns 0.
func (s *Storage) RemoveComponent(id EntityId, compType reflect.Type) EntityId {
	if !s.Alive(id) {
		return 0
	}
	oldArchetype := s.archetypes[id.ArchetypeId()]
	if !oldArchetype.HasComponent(compType) {
		return id
	}

	newTypes := make([]reflect.Type, 0, len(oldArchetype.types)-1)
	for _, typ := range oldArchetype.types {
		if typ != compType {
			newTypes = append(newTypes, typ)
		}
	}

	if len(newTypes) == 0 {
		oldArchetype.Delete(id.Index())
		return 0
	}

	components := make([]any, 0, len(newTypes))
	for _, typ := range newTypes {
		components = append(components, oldArchetype.GetComponent(id.Index(), typ))
	}

	return s.move(id, oldArchetype, s.archetypeFor(newTypes), components, compType)
}

// move copies an entity into another archetype, keeps any EntityRef current and vacates
// the old slot. dropType names the one component that is being destroyed by the move.
func (s *Storage) move(id EntityId, from, to *Archetype, components []any, dropType reflect.Type) EntityId {
	weakPtr, hasRef := from.refs.Get(id)

	newId := NewEntityId(to.id, to.Spawn(components))

	if hasRef {
		if ref := weakPtr.Value(); ref != nil {
			ref.Id = newId
			ref.Archetype = to
			to.refs.Put(newId, weakPtr)
		}
		from.refs.Del(id)
	}

	from.evict(id.Index(), dropType)
	return newId
}

// GetComponent returns the component for the given entity ID and component type
func (s *Storage) GetComponent(id EntityId, compType reflect.Type) any {
	archetype, ok := s.archetypes[id.ArchetypeId()]
	if !ok {
		return nil
	}
	return archetype.GetComponent(id.Index(), compType)
}

// HasComponent checks if an entity has a specific component type
func (s *Storage) HasComponent(id EntityId, compType reflect.Type) bool {
	archetype, ok := s.archetypes[id.ArchetypeId()]
	if !ok {
		return false
	}
	return archetype.HasComponent(compType)
}

// AddSingleton stores a singleton value keyed by its type. If a singleton of the same type
// already exists its value is replaced in place (the previous value is dropped), so
// pointers obtained through Singleton stay valid.
func (s *Storage) AddSingleton(value any) {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()

	if entry, ok := s.singletons[t]; ok {
		previous := reflect.New(t)
		previous.Elem().Set(entry.value.Elem())
		entry.value.Elem().Set(v)
		dropValue(previous.Interface())
		return
	}

	ptr := reflect.New(t)
	ptr.Elem().Set(v)
	s.singletons[t] = &singletonEntry{
		value:   ptr,
		dataPtr: ptr.UnsafePointer(),
	}
	s.singletonGen++
}

// RemoveSingleton removes and drops the singleton of the given type.
func (s *Storage) RemoveSingleton(t reflect.Type) bool {
	entry, ok := s.singletons[t]
	if !ok {
		return false
	}
	delete(s.singletons, t)
	s.singletonGen++
	dropValue(entry.value.Interface())
	return true
}

// HasSingleton reports whether a singleton of the given type exists.
func (s *Storage) HasSingleton(t reflect.Type) bool {
	_, ok := s.singletons[t]
	return ok
}

// GetSingleton returns a pointer to the singleton of the given type, or nil.
func (s *Storage) GetSingleton(t reflect.Type) any {
	entry, ok := s.singletons[t]
	if !ok {
		return nil
	}
	return entry.value.Interface()
}

func (s *Storage) getSingletonEntry(t reflect.Type) *singletonEntry {
	return s.singletons[t]
}

// extractComponentTypes extracts and sorts component types from a slice of components
func extractComponentTypes(components []any) []reflect.Type {
	types := make([]reflect.Type, 0, len(components))
	for _, comp := range components {
		compType := reflect.TypeOf(comp)

		if compType.Kind() == reflect.Ptr {
			compType = compType.Elem()
		}

		// Components can be structs or primitives (int, string, etc.)
		// But not pointers, maps, channels, or functions (those aren't value types)
		if compType.Kind() == reflect.Ptr || compType.Kind() == reflect.Map ||
			compType.Kind() == reflect.Chan || compType.Kind() == reflect.Func {
			panic("components cannot be pointers, maps, channels, or functions")
		}

		types = append(types, compType)
	}
	sort.Sort(byTypeName(types))
	return types
}

// hashTypesToUint32 generates a uint32 hash for a sorted slice of types
func hashTypesToUint32(types []reflect.Type) uint32 {
	var h uint32 = 2166136261     // FNV-1a 32-bit offset basis
	const prime uint32 = 16777619 // FNV-1a 32-bit prime

	for _, t := range types {
		ptr := (*iface)(unsafe.Pointer(&t)).data
		val := uint32(uintptr(ptr))

		if unsafe.Sizeof(uintptr(0)) == 8 {
			val ^= uint32(uintptr(ptr) >> 32)
		}

		h ^= val
		h *= prime
	}

	return h
}

type ComponentReader interface {
	GetComponent(EntityId, reflect.Type) any
}

// ReadComponent returns a typed pointer to an entity's component, or nil when the entity
// does not have it.
func ReadComponent[T any](reader ComponentReader, entityId EntityId) *T {
	comp, _ := reader.GetComponent(entityId, reflect.TypeFor[T]()).(*T)
	return comp
}

// ReadSingleton returns a typed pointer to a singleton, or nil when it does not exist.
func ReadSingleton[T any](s *Storage) *T {
	v, _ := s.GetSingleton(reflect.TypeFor[T]()).(*T)
	return v
}
