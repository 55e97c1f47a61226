package ecs

import (
	"iter"
	"reflect"
	"unsafe"
)

type fieldKind uint8

const (
	fieldRequired fieldKind = iota
	fieldOptional
	fieldWithout
	fieldEntity
)

type viewField struct {
	typ    reflect.Type
	offset uintptr
	kind   fieldKind
}

var entityIdType = reflect.TypeFor[EntityId]()

// View represents a query for entities with a specific combination of components.
// The type T should be a struct with embedded pointer fields for each component type.
//
// Named pointer fields accept an `ecs` struct tag:
//   - `ecs:"optional"` the component may be missing; the field is nil when it is
//   - `ecs:"without"` the entity must NOT have the component; the field is always nil
//
// A field of type EntityId (embedded or named) receives the entity's id.
type View[T any] struct {
	storage *Storage
	fields  []viewField
}

// NewView creates a new view for the given struct type
func NewView[T any](storage *Storage) *View[T] {
	structType := reflect.TypeFor[T]()

	if structType.Kind() != reflect.Struct {
		panic("View type parameter must be a struct")
	}

	fields := make([]viewField, 0, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if field.Type == entityIdType {
			fields = append(fields, viewField{typ: entityIdType, offset: field.Offset, kind: fieldEntity})
			continue
		}

		if field.Type.Kind() != reflect.Ptr {
			panic("View struct fields must be pointer types or EntityId")
		}

		kind := fieldRequired
		if !field.Anonymous {
			switch tag := field.Tag.Get("ecs"); tag {
			case "":
			case "optional":
				kind = fieldOptional
			case "without":
				kind = fieldWithout
			default:
				panic("invalid ecs tag value: \"" + tag + "\" (expected \"optional\" or \"without\")")
			}
		}

		fields = append(fields, viewField{typ: field.Type.Elem(), offset: field.Offset, kind: kind})
	}

	return &View[T]{
		storage: storage,
		fields:  fields,
	}
}

// Fill populates the provided struct pointer with component data for the given entity.
// Returns false if the entity is not alive or does not match the view.
func (v *View[T]) Fill(id EntityId, ptr *T) bool {
	archetype, ok := v.storage.archetypes[id.ArchetypeId()]
	if !ok || !v.matchesArchetype(archetype) {
		return false
	}
	return v.populateResult(unsafe.Pointer(ptr), archetype, int(id.Index()), v.buildStorageIndices(archetype))
}

// Get returns a populated view struct for the given entity, or nil if the entity
// doesn't match the view
func (v *View[T]) Get(id EntityId) *T {
	var result T
	if !v.Fill(id, &result) {
		return nil
	}
	return &result
}

// GetRef returns a populated view struct for the given entity ref, or nil if invalid
func (v *View[T]) GetRef(ref *EntityRef) *T {
	entityId, ok := v.storage.ResolveEntityRef(ref)
	if !ok {
		return nil
	}
	return v.Get(entityId)
}

// matchesArchetype checks the archetype has every required type and none of the
// excluded ones.
func (v *View[T]) matchesArchetype(archetype *Archetype) bool {
	for _, f := range v.fields {
		switch f.kind {
		case fieldRequired:
			if !archetype.HasComponent(f.typ) {
				return false
			}
		case fieldWithout:
			if archetype.HasComponent(f.typ) {
				return false
			}
		}
	}
	return true
}

func (v *View[T]) buildStorageIndices(archetype *Archetype) []int {
	storageIndices := make([]int, len(v.fields))
	for i, f := range v.fields {
		storageIndices[i] = -1
		if f.kind == fieldRequired || f.kind == fieldOptional {
			storageIndices[i] = archetype.storageIndex(f.typ)
		}
	}
	return storageIndices
}

func (v *View[T]) populateResult(resultPtr unsafe.Pointer, archetype *Archetype, entityIndex int, storageIndices []int) bool {
	if !archetype.Alive(uint32(entityIndex)) {
		return false
	}

	for i, f := range v.fields {
		fieldPtr := unsafe.Add(resultPtr, f.offset)

		switch f.kind {
		case fieldEntity:
			*(*EntityId)(fieldPtr) = NewEntityId(archetype.id, uint32(entityIndex))
			continue
		case fieldWithout:
			*(*unsafe.Pointer)(fieldPtr) = nil
			continue
		}

		var component any
		if storageIndices[i] != -1 {
			component = archetype.storages[storageIndices[i]].Get(entityIndex)
		}
		if component == nil {
			if f.kind == fieldOptional {
				*(*unsafe.Pointer)(fieldPtr) = nil
				continue
			}
			return false
		}

		*(*unsafe.Pointer)(fieldPtr) = (*iface)(unsafe.Pointer(&component)).data
	}
	return true
}

// Iter returns an iterator over all entities matching the view.
// The iterator yields (EntityId, T) pairs where T is the populated view struct.
func (v *View[T]) Iter() iter.Seq2[EntityId, T] {
	return func(yield func(EntityId, T) bool) {
		for _, archetype := range v.storage.archetypes {
			if !v.matchesArchetype(archetype) {
				continue
			}
			if !v.iterArchetype(archetype, yield) {
				return
			}
		}
	}
}

func (v *View[T]) iterArchetype(archetype *Archetype, yield func(EntityId, T) bool) bool {
	if len(archetype.storages) == 0 {
		return true
	}

	storageIndices := v.buildStorageIndices(archetype)

	var result T
	resultPtr := unsafe.Pointer(&result)

	for entityIndex := range archetype.storages[0].Iter() {
		if !v.populateResult(resultPtr, archetype, entityIndex, storageIndices) {
			continue
		}
		if !yield(NewEntityId(archetype.id, uint32(entityIndex)), result) {
			return false
		}
	}
	return true
}

// Values returns an iterator over just the view structs (without entity IDs)
func (v *View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}
