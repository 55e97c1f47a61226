package memhost

import (
	"fmt"
	"sync"

	"github.com/plus3/scenebridge/host"
)

// Resource is a reference-counted resource. It starts with a count of zero; holders take
// references with IncRef.
type Resource struct {
	id    host.ObjectID
	class string
	path  string

	mu   sync.Mutex
	refs int
	incs int
	decs int
}

func (r *Resource) ID() host.ObjectID { return r.id }
func (r *Resource) Class() string     { return r.class }
func (r *Resource) Path() string      { return r.path }

func (r *Resource) IncRef() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs++
	r.incs++
}

func (r *Resource) DecRef() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decs++
	if r.refs > 0 {
		r.refs--
	}
	return r.refs == 0
}

func (r *Resource) RefCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs
}

// Traffic returns the total number of IncRef and DecRef calls seen.
func (r *Resource) Traffic() (incs, decs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.incs, r.decs
}

// NewResource creates and registers a non-scene resource such as a texture.
func (e *Engine) NewResource(class, path string) *Resource {
	r := &Resource{id: e.allocate(), class: class, path: path}
	e.register(r)
	return r
}

// NodeSpec describes one node of a packed scene.
type NodeSpec struct {
	Class       string // "Node", "Node2D" or "Node3D"
	Name        string
	Transform2D *host.Transform2D
	Transform3D *host.Transform3D
	Props       map[string]any
	Children    []NodeSpec
}

// PackedScene is an instantiable scene resource.
type PackedScene struct {
	Resource
	engine *Engine
	root   NodeSpec

	instances int
}

// NewPackedScene creates and registers a scene resource whose instances follow root.
func (e *Engine) NewPackedScene(path string, root NodeSpec) *PackedScene {
	s := &PackedScene{engine: e, root: root}
	s.Resource = Resource{id: e.allocate(), class: "PackedScene", path: path}
	e.register(s)
	return s
}

// Instantiate builds a detached node tree from the scene description.
func (s *PackedScene) Instantiate() (host.Node, error) {
	n, err := s.engine.build(s.root)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.instances++
	s.mu.Unlock()
	return n, nil
}

// Instances returns how many times the scene was instantiated.
func (s *PackedScene) Instances() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instances
}

func (e *Engine) build(spec NodeSpec) (host.Node, error) {
	var (
		n    host.Node
		base *Node
	)

	switch spec.Class {
	case "", "Node":
		plain := e.NewNode(spec.Name)
		n, base = plain, plain
	case "Node2D":
		n2 := e.NewNode2D(spec.Name)
		if spec.Transform2D != nil {
			n2.SetTransform2D(*spec.Transform2D)
		}
		n, base = n2, &n2.Node
	case "Node3D":
		n3 := e.NewNode3D(spec.Name)
		if spec.Transform3D != nil {
			n3.SetTransform3D(*spec.Transform3D)
		}
		n, base = n3, &n3.Node
	default:
		return nil, fmt.Errorf("unknown node class %q", spec.Class)
	}
	base.props = spec.Props

	for _, childSpec := range spec.Children {
		child, err := e.build(childSpec)
		if err != nil {
			e.Destroy(n)
			return nil, err
		}
		if err := n.AddChild(child); err != nil {
			e.Destroy(n)
			return nil, err
		}
	}
	return n, nil
}
