package memhost

import (
	"slices"

	"github.com/plus3/scenebridge/host"
)

// Node is a plain scene-tree node.
type Node struct {
	id       host.ObjectID
	class    string
	name     string
	self     host.Node
	parent   host.Node
	children []host.Node
	props    map[string]any
}

type treeNode interface {
	host.Node
	node() *Node
}

func (n *Node) node() *Node { return n }

func (n *Node) ID() host.ObjectID { return n.id }
func (n *Node) Class() string     { return n.class }
func (n *Node) Name() string      { return n.name }

func (n *Node) Parent() (host.Node, bool) {
	return n.parent, n.parent != nil
}

func (n *Node) Children() []host.Node {
	return slices.Clone(n.children)
}

func (n *Node) AddChild(child host.Node) error {
	c, ok := child.(treeNode)
	if !ok {
		return host.ErrTypeMismatch
	}
	cn := c.node()
	if cn.parent != nil {
		return host.ErrHasParent
	}
	cn.parent = n.self
	n.children = append(n.children, cn.self)
	return nil
}

// FindChild returns the direct child with the given name.
func (n *Node) FindChild(name string) (host.Node, bool) {
	for _, child := range n.children {
		if child.Name() == name {
			return child, true
		}
	}
	return nil, false
}

// Prop returns a free-form property set from the scene description.
func (n *Node) Prop(key string) (any, bool) {
	v, ok := n.props[key]
	return v, ok
}

func (n *Node) detach() {
	if n.parent == nil {
		return
	}
	if p, ok := n.parent.(treeNode); ok {
		pn := p.node()
		pn.children = slices.DeleteFunc(pn.children, func(c host.Node) bool {
			return c.ID() == n.id
		})
	}
	n.parent = nil
}

// Node2D is a node with a 2D transform.
type Node2D struct {
	Node
	transform host.Transform2D
}

func (n *Node2D) Transform2D() host.Transform2D     { return n.transform }
func (n *Node2D) SetTransform2D(t host.Transform2D) { n.transform = t }

// Node3D is a node with a 3D transform.
type Node3D struct {
	Node
	transform host.Transform3D
}

func (n *Node3D) Transform3D() host.Transform3D     { return n.transform }
func (n *Node3D) SetTransform3D(t host.Transform3D) { n.transform = t }

// NewNode creates and registers a detached plain node.
func (e *Engine) NewNode(name string) *Node {
	n := &Node{id: e.allocate(), class: "Node", name: name}
	n.self = n
	e.register(n)
	return n
}

// NewNode2D creates and registers a detached 2D node at the identity transform.
func (e *Engine) NewNode2D(name string) *Node2D {
	n := &Node2D{transform: host.Identity2D()}
	n.Node = Node{id: e.allocate(), class: "Node2D", name: name, self: n}
	e.register(n)
	return n
}

// NewNode3D creates and registers a detached 3D node at the identity transform.
func (e *Engine) NewNode3D(name string) *Node3D {
	n := &Node3D{transform: host.Identity3D()}
	n.Node = Node{id: e.allocate(), class: "Node3D", name: name, self: n}
	e.register(n)
	return n
}
