package memhost

import (
	"fmt"
	"sync"

	"github.com/plus3/scenebridge/host"
)

// Tree implements host.SceneTree around a root node.
type Tree struct {
	engine  *Engine
	root    *Node
	current host.Node
}

func (t *Tree) Root() host.Node {
	return t.root
}

func (t *Tree) FindNode(name string) (host.Node, bool) {
	return t.root.FindChild(name)
}

func (t *Tree) CurrentScene() (host.Node, bool) {
	if t.current == nil || !t.engine.Alive(t.current.ID()) {
		return nil, false
	}
	return t.current, true
}

// AddSingleton attaches a new plain node under the root, the way the host registers
// autoload singletons, and returns it.
func (t *Tree) AddSingleton(name string) *Node {
	n := t.engine.NewNode(name)
	if err := t.root.AddChild(n); err != nil {
		panic(err)
	}
	return n
}

// SetCurrentScene attaches node under the root and marks it as the current scene.
func (t *Tree) SetCurrentScene(node host.Node) error {
	if _, ok := node.Parent(); !ok {
		if err := t.root.AddChild(node); err != nil {
			return err
		}
	}
	t.current = node
	return nil
}

// Walk visits every node below (and including) n depth first.
func Walk(n host.Node, visit func(host.Node, int)) {
	var walk func(host.Node, int)
	walk = func(n host.Node, depth int) {
		visit(n, depth)
		for _, child := range n.Children() {
			walk(child, depth+1)
		}
	}
	walk(n, 0)
}

// Loader implements host.ResourceLoader over an in-memory cache. Cached resources hold
// one reference owned by the cache.
type Loader struct {
	engine *Engine

	mu    sync.Mutex
	cache map[string]host.Resource
	loads int
}

// Add registers res under path, taking the cache's reference.
func (l *Loader) Add(path string, res host.Resource) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if old, ok := l.cache[path]; ok {
		if old.DecRef() {
			l.engine.Destroy(old)
		}
	}
	res.IncRef()
	l.cache[path] = res
}

// Evict drops the cache's reference to path, destroying the resource if nothing else holds it.
func (l *Loader) Evict(path string) {
	l.mu.Lock()
	res, ok := l.cache[path]
	delete(l.cache, path)
	l.mu.Unlock()

	if ok && res.DecRef() {
		l.engine.Destroy(res)
	}
}

func (l *Loader) Load(path, typeHint string) (host.Resource, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++

	res, ok := l.cache[path]
	if !ok || !l.engine.Alive(res.ID()) {
		return nil, fmt.Errorf("load %s: %w", path, host.ErrNotFound)
	}
	if typeHint != "" && res.Class() != typeHint {
		return nil, fmt.Errorf("load %s as %s: got %s: %w", path, typeHint, res.Class(), host.ErrTypeMismatch)
	}
	return res, nil
}

// Loads returns how many Load calls were made.
func (l *Loader) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}
