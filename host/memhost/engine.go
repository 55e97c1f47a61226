// Package memhost is an in-process host engine: an object registry, a scene tree of plain
// nodes, reference-counted resources and a cached resource loader. It backs the bridge's
// tests, the stress tool and the ebiten demo, and records reference-count traffic per
// object so ownership rules can be verified.
package memhost

import (
	"sync"
	"sync/atomic"

	"github.com/kamstrup/intmap"
	"github.com/plus3/scenebridge/host"
)

// Engine implements host.Engine.
type Engine struct {
	mu      sync.RWMutex
	objects *intmap.Map[host.ObjectID, host.Object]
	calls   *intmap.Map[host.ObjectID, int]
	nextID  atomic.Uint64
	editor  bool

	tree   *Tree
	loader *Loader
}

type Option func(*Engine)

// WithEditorHint makes IsEditorHint report true, as when running inside design-time tooling.
func WithEditorHint() Option {
	return func(e *Engine) {
		e.editor = true
	}
}

// New creates an engine with an empty tree (a root node named "root") and an empty loader.
func New(opts ...Option) *Engine {
	e := &Engine{
		objects: intmap.New[host.ObjectID, host.Object](256),
		calls:   intmap.New[host.ObjectID, int](64),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.tree = &Tree{engine: e, root: e.NewNode("root")}
	e.loader = &Loader{engine: e, cache: make(map[string]host.Resource)}
	return e
}

func (e *Engine) allocate() host.ObjectID {
	return host.ObjectID(e.nextID.Add(1))
}

func (e *Engine) register(obj host.Object) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.objects.Put(obj.ID(), obj)
}

func (e *Engine) Lookup(id host.ObjectID) (host.Object, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.objects.Get(id)
}

// Destroy frees an object. Nodes are detached from their parent and their children are
// destroyed with them. Every call is counted, including calls for objects that are
// already gone.
func (e *Engine) Destroy(obj host.Object) {
	if obj == nil {
		return
	}

	e.mu.Lock()
	count, _ := e.calls.Get(obj.ID())
	e.calls.Put(obj.ID(), count+1)
	_, alive := e.objects.Get(obj.ID())
	e.mu.Unlock()

	if !alive {
		return
	}

	if n, ok := obj.(treeNode); ok {
		n.node().detach()
		for _, child := range n.Children() {
			e.Destroy(child)
		}
	}

	e.mu.Lock()
	e.objects.Del(obj.ID())
	e.mu.Unlock()
}

// DestroyCalls returns how many times Destroy was called for id.
func (e *Engine) DestroyCalls(id host.ObjectID) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	count, _ := e.calls.Get(id)
	return count
}

// Alive reports whether id still resolves.
func (e *Engine) Alive(id host.ObjectID) bool {
	_, ok := e.Lookup(id)
	return ok
}

// ObjectCount returns the number of live objects.
func (e *Engine) ObjectCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.objects.Len()
}

func (e *Engine) IsEditorHint() bool {
	return e.editor
}

func (e *Engine) SceneTree() host.SceneTree {
	return e.tree
}

func (e *Engine) ResourceLoader() host.ResourceLoader {
	return e.loader
}

// Tree returns the concrete tree, for setup code that needs to add singleton nodes.
func (e *Engine) Tree() *Tree {
	return e.tree
}

// Loader returns the concrete loader, for setup code that needs to register resources.
func (e *Engine) Loader() *Loader {
	return e.loader
}
