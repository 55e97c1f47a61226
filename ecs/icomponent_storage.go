package ecs

import "iter"

// iComponentStorage is an interface for a type-erased component storage.
type iComponentStorage interface {
	Append(item any) int
	// Set overwrites the value in an occupied slot, returning a pointer to the previous value.
	Set(index int, item any) (any, bool)
	// Delete destroys the value in a slot, calling Drop if it implements Dropper.
	Delete(index int)
	// Evict vacates a slot whose value has been copied elsewhere. Drop is not called.
	Evict(index int)
	Get(index int) any
	Has(index int) bool
	Len() int
	Iter() iter.Seq[int]
}
