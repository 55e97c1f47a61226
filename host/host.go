// Package host describes the capabilities scenebridge needs from the engine that owns the
// process: an object registry addressed by stable identities, intrusive reference counting
// for resources, a scene tree, a resource loader and an editor-context query.
//
// The bridge only ever talks to these interfaces. memhost provides an in-process
// implementation.
package host

import "errors"

var (
	ErrNotFound     = errors.New("host: resource not found")
	ErrTypeMismatch = errors.New("host: resource type mismatch")
	ErrNotInTree    = errors.New("host: node is not inside the tree")
	ErrHasParent    = errors.New("host: node already has a parent")
)

// ObjectID is the stable, process-unique identity the host assigns to every object.
// Zero is never a valid identity.
type ObjectID uint64

// Object is any host-engine object.
type Object interface {
	ID() ObjectID
	Class() string
}

// RefCounted objects use intrusive reference counting.
type RefCounted interface {
	Object
	IncRef()
	// DecRef decrements the count and reports whether it reached zero. The caller that
	// observes true is responsible for destroying the object.
	DecRef() bool
	RefCount() int
}

// Resource is a loadable, reference-counted asset.
type Resource interface {
	RefCounted
	Path() string
}

// PackedScene is a resource that can be instantiated into a detached node tree.
type PackedScene interface {
	Resource
	Instantiate() (Node, error)
}

// Node is an element of the scene tree.
type Node interface {
	Object
	Name() string
	Parent() (Node, bool)
	Children() []Node
	AddChild(child Node) error
}

// Node2D is a node with a 2D transform.
type Node2D interface {
	Node
	Transform2D() Transform2D
	SetTransform2D(t Transform2D)
}

// Node3D is a node with a 3D transform.
type Node3D interface {
	Node
	Transform3D() Transform3D
	SetTransform3D(t Transform3D)
}

// Registry resolves identities back to live objects.
type Registry interface {
	// Lookup returns the live object for id, or false once it has been destroyed.
	Lookup(id ObjectID) (Object, bool)
	// Destroy frees the object. Destroying an already destroyed object is a no-op.
	Destroy(obj Object)
}

// SceneTree is the host's live node hierarchy.
type SceneTree interface {
	Root() Node
	// FindNode returns the direct child of the root with the given name. Singleton
	// nodes registered by the host (autoloads) live there.
	FindNode(name string) (Node, bool)
	CurrentScene() (Node, bool)
}

// ResourceLoader loads resources synchronously. A load may block the calling thread.
type ResourceLoader interface {
	// Load returns the resource at path. A non-empty typeHint restricts the result to
	// resources of that class.
	Load(path, typeHint string) (Resource, error)
}

// Engine bundles every capability the bridge uses.
type Engine interface {
	Registry
	// IsEditorHint reports whether the code is running inside design-time tooling
	// rather than the live game.
	IsEditorHint() bool
	SceneTree() SceneTree
	ResourceLoader() ResourceLoader
}

// InputEvent is an input event forwarded by the host.
type InputEvent struct {
	Action   string
	Pressed  bool
	Position Vec2
}
