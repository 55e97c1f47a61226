package ecs

import (
	"iter"
	"reflect"
)

// ComponentRegistry manages component type registration for an ECS instance.
// Each Storage instance has its own ComponentRegistry, allowing multiple
// independent ECS systems to coexist without interference.
type ComponentRegistry struct {
	factories map[reflect.Type]func() iComponentStorage
}

// NewComponentRegistry creates a new component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		factories: make(map[reflect.Type]func() iComponentStorage),
	}
}

// RegisterComponent registers a new component type with the given registry.
// This must be called for each component type before it can be used.
// Registering the same type twice is harmless.
func RegisterComponent[T any](r *ComponentRegistry) {
	t := reflect.TypeFor[T]()
	if _, ok := r.factories[t]; ok {
		return
	}
	r.factories[t] = func() iComponentStorage {
		return &genericComponentStorage[T]{}
	}
}

// IsRegistered reports whether a component type has been registered.
func (r *ComponentRegistry) IsRegistered(t reflect.Type) bool {
	_, ok := r.factories[t]
	return ok
}

// getFactory returns the factory function for a given component type.
// Returns nil if the type is not registered.
func (r *ComponentRegistry) getFactory(t reflect.Type) func() iComponentStorage {
	return r.factories[t]
}

const (
	genericBlockSize = 64
)

// genericComponentStorage stores components of a specific type `T` in fixed-size blocks so
// that pointers handed out by Get stay valid while the storage grows.
type genericComponentStorage[T any] struct {
	blocks    []*[genericBlockSize]T
	filled    []*[genericBlockSize]bool
	freeSlots []int
	nextIndex int
	count     int
}

func (cs *genericComponentStorage[T]) coerce(item any) (T, bool) {
	if ptr, ok := item.(*T); ok {
		return *ptr, true
	}
	val, ok := item.(T)
	return val, ok
}

func (cs *genericComponentStorage[T]) slot(index int) (int, int, bool) {
	if index < 0 {
		return 0, 0, false
	}
	blockIdx := index / genericBlockSize
	if blockIdx >= len(cs.blocks) {
		return 0, 0, false
	}
	return blockIdx, index % genericBlockSize, true
}

// Append adds a component to storage and returns its index.
func (cs *genericComponentStorage[T]) Append(item any) int {
	concreteItem, ok := cs.coerce(item)
	if !ok {
		return -1
	}

	var index int
	if len(cs.freeSlots) > 0 {
		index = cs.freeSlots[len(cs.freeSlots)-1]
		cs.freeSlots = cs.freeSlots[:len(cs.freeSlots)-1]
	} else {
		index = cs.nextIndex
		cs.nextIndex++
		if index/genericBlockSize >= len(cs.blocks) {
			cs.blocks = append(cs.blocks, new([genericBlockSize]T))
			cs.filled = append(cs.filled, new([genericBlockSize]bool))
		}
	}

	blockIdx, slotIdx, _ := cs.slot(index)
	cs.blocks[blockIdx][slotIdx] = concreteItem
	cs.filled[blockIdx][slotIdx] = true
	cs.count++
	return index
}

func (cs *genericComponentStorage[T]) Set(index int, item any) (any, bool) {
	concreteItem, ok := cs.coerce(item)
	if !ok {
		return nil, false
	}
	blockIdx, slotIdx, ok := cs.slot(index)
	if !ok || !cs.filled[blockIdx][slotIdx] {
		return nil, false
	}
	previous := cs.blocks[blockIdx][slotIdx]
	cs.blocks[blockIdx][slotIdx] = concreteItem
	return &previous, true
}

// Get returns a pointer to the component at the given index.
func (cs *genericComponentStorage[T]) Get(index int) any {
	blockIdx, slotIdx, ok := cs.slot(index)
	if !ok || !cs.filled[blockIdx][slotIdx] {
		return nil
	}
	return &cs.blocks[blockIdx][slotIdx]
}

func (cs *genericComponentStorage[T]) Delete(index int) {
	blockIdx, slotIdx, ok := cs.slot(index)
	if !ok || !cs.filled[blockIdx][slotIdx] {
		return
	}
	value := cs.blocks[blockIdx][slotIdx]
	cs.Evict(index)
	dropValue(&value)
}

func (cs *genericComponentStorage[T]) Evict(index int) {
	blockIdx, slotIdx, ok := cs.slot(index)
	if !ok || !cs.filled[blockIdx][slotIdx] {
		return
	}
	cs.filled[blockIdx][slotIdx] = false
	var zero T
	cs.blocks[blockIdx][slotIdx] = zero
	cs.freeSlots = append(cs.freeSlots, index)
	cs.count--
}

// Has checks if a component exists at the given index.
func (cs *genericComponentStorage[T]) Has(index int) bool {
	blockIdx, slotIdx, ok := cs.slot(index)
	return ok && cs.filled[blockIdx][slotIdx]
}

func (cs *genericComponentStorage[T]) Len() int {
	return cs.count
}

func (cs *genericComponentStorage[T]) Iter() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := 0; i < cs.nextIndex; i++ {
			if !cs.filled[i/genericBlockSize][i%genericBlockSize] {
				continue
			}
			if !yield(i) {
				return
			}
		}
	}
}
