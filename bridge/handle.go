package bridge

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/plus3/scenebridge/host"
)

// NativeHandle records the identity of a host object so it can be stored as a component
// and resolved back to the live object later. It never affects the object's lifetime.
type NativeHandle struct {
	id host.ObjectID
}

// Wrap captures the identity of obj.
func Wrap(obj host.Object) NativeHandle {
	return NativeHandle{id: obj.ID()}
}

// ID returns the recorded identity.
func (h NativeHandle) ID() host.ObjectID {
	return h.id
}

// IsValid reports whether the handle records an identity at all. It says nothing about
// whether the object is still alive.
func (h NativeHandle) IsValid() bool {
	return h.id != 0
}

// Resolve returns the live object as T. It reports false if the object was destroyed or
// is not a T.
func Resolve[T host.Object](reg host.Registry, h NativeHandle) (T, bool) {
	var zero T
	obj, ok := reg.Lookup(h.id)
	if !ok {
		return zero, false
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Get is like Resolve but panics when the object is gone or of the wrong type.
func Get[T host.Object](reg host.Registry, h NativeHandle) T {
	obj, ok := Resolve[T](reg, h)
	if !ok {
		panic(fmt.Sprintf("failed to get host object %d as %v", h.id, reflect.TypeFor[T]()))
	}
	return obj
}

// Handle is a NativeHandle for components that always hold the same kind of host object.
// Register each instantiation with RegisterComponent before spawning it.
type Handle[T host.Object] struct {
	NativeHandle
}

// WrapAs captures the identity of obj together with its type.
func WrapAs[T host.Object](obj T) Handle[T] {
	return Handle[T]{NativeHandle: Wrap(obj)}
}

func (h Handle[T]) Resolve(reg host.Registry) (T, bool) {
	return Resolve[T](reg, h.NativeHandle)
}

func (h Handle[T]) Get(reg host.Registry) T {
	return Get[T](reg, h.NativeHandle)
}

// ManagedResourceHandle owns one reference on a reference-counted host resource.
//
// Copies of a handle value share the same reference; Clone takes an independent one.
// Release (or Drop, when the handle is stored as a component) gives the reference back
// exactly once, destroying the resource when it was the last one.
type ManagedResourceHandle struct {
	id  host.ObjectID
	ref *managedRef
}

type managedRef struct {
	registry host.Registry
	released atomic.Bool
}

// BindResource takes a new reference on res.
func BindResource(reg host.Registry, res host.Resource) ManagedResourceHandle {
	res.IncRef()
	return ManagedResourceHandle{id: res.ID(), ref: &managedRef{registry: reg}}
}

// ID returns the identity of the managed resource.
func (h ManagedResourceHandle) ID() host.ObjectID {
	return h.id
}

// Valid reports whether the handle still owns its reference.
func (h ManagedResourceHandle) Valid() bool {
	return h.ref != nil && !h.ref.released.Load()
}

// Resolve returns the live resource. It reports false once the handle was released or
// the resource no longer exists.
func (h ManagedResourceHandle) Resolve() (host.Resource, bool) {
	if !h.Valid() {
		return nil, false
	}
	obj, ok := h.ref.registry.Lookup(h.id)
	if !ok {
		return nil, false
	}
	res, ok := obj.(host.Resource)
	return res, ok
}

// Get returns the live resource and panics if it cannot be resolved. Holding a valid
// handle keeps the resource alive, so this only fails on a released handle or when
// something outside the counting protocol destroyed the resource.
func (h ManagedResourceHandle) Get() host.Resource {
	res, ok := h.Resolve()
	if !ok {
		panic(fmt.Sprintf("failed to get managed resource %d", h.id))
	}
	return res
}

// Clone takes a new, independent reference on the same resource. When the resource no
// longer resolves the clone records the identity only and will never decrement.
func (h ManagedResourceHandle) Clone() ManagedResourceHandle {
	if h.ref == nil {
		return h
	}
	clone := ManagedResourceHandle{id: h.id, ref: &managedRef{registry: h.ref.registry}}
	res, ok := h.Resolve()
	if !ok {
		clone.ref.released.Store(true)
		return clone
	}
	res.IncRef()
	return clone
}

// Release gives back the handle's reference. The resource is destroyed when this was the
// last reference. Releasing twice, or after the resource vanished, does nothing.
func (h ManagedResourceHandle) Release() {
	if h.ref == nil || !h.ref.released.CompareAndSwap(false, true) {
		return
	}
	obj, ok := h.ref.registry.Lookup(h.id)
	if !ok {
		return
	}
	rc, ok := obj.(host.RefCounted)
	if !ok {
		return
	}
	if rc.DecRef() {
		h.ref.registry.Destroy(rc)
	}
}

// Drop releases the handle when the component holding it is destroyed.
func (h ManagedResourceHandle) Drop() {
	h.Release()
}
