package bridge

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/plus3/scenebridge/ecs"
	"github.com/plus3/scenebridge/host"
	"go.uber.org/zap"
)

// AssetHandle addresses an entry in Assets. The zero handle is invalid.
type AssetHandle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the invalid handle.
func (h AssetHandle) IsZero() bool {
	return h.index == 0
}

func (h AssetHandle) String() string {
	return fmt.Sprintf("asset(%d:%d)", h.index, h.gen)
}

// LoadState describes an asset entry.
type LoadState uint8

const (
	LoadUnknown LoadState = iota
	LoadPending
	LoadLoaded
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadPending:
		return "pending"
	case LoadLoaded:
		return "loaded"
	case LoadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Assets is a table of managed host resources addressed by AssetHandle. Entries own their
// handle's reference; removing an entry or dropping the table releases it.
type Assets struct {
	mu       sync.RWMutex
	entries  []assetEntry
	freeList []uint32
}

type assetEntry struct {
	path   string
	handle ManagedResourceHandle
	state  LoadState
	err    error
	gen    uint32
	valid  bool
}

func (a *Assets) insert(e assetEntry) AssetHandle {
	a.mu.Lock()
	defer a.mu.Unlock()

	e.valid = true
	if len(a.freeList) > 0 {
		index := a.freeList[len(a.freeList)-1]
		a.freeList = a.freeList[:len(a.freeList)-1]
		e.gen = a.entries[index-1].gen + 1
		a.entries[index-1] = e
		return AssetHandle{index: index, gen: e.gen}
	}

	a.entries = append(a.entries, e)
	return AssetHandle{index: uint32(len(a.entries)), gen: e.gen}
}

// entry must be called with the lock held.
func (a *Assets) entry(h AssetHandle) *assetEntry {
	if h.index == 0 || int(h.index) > len(a.entries) {
		return nil
	}
	e := &a.entries[h.index-1]
	if !e.valid || e.gen != h.gen {
		return nil
	}
	return e
}

// Add stores a loaded resource and takes ownership of handle.
func (a *Assets) Add(handle ManagedResourceHandle) AssetHandle {
	return a.insert(assetEntry{handle: handle, state: LoadLoaded})
}

func (a *Assets) reserve(p string) AssetHandle {
	return a.insert(assetEntry{path: p, state: LoadPending})
}

// complete finishes a pending entry. If the entry was removed while loading, the loaded
// reference is released immediately.
func (a *Assets) complete(h AssetHandle, handle ManagedResourceHandle, err error) {
	a.mu.Lock()
	e := a.entry(h)
	if e == nil {
		a.mu.Unlock()
		handle.Release()
		return
	}
	if err != nil {
		e.state = LoadFailed
		e.err = err
	} else {
		e.state = LoadLoaded
		e.handle = handle
	}
	a.mu.Unlock()
}

// Get returns the managed handle of a loaded entry.
func (a *Assets) Get(h AssetHandle) (ManagedResourceHandle, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e := a.entry(h)
	if e == nil || e.state != LoadLoaded {
		return ManagedResourceHandle{}, false
	}
	return e.handle, true
}

// Resolve returns the live resource behind h.
func (a *Assets) Resolve(h AssetHandle) (host.Resource, error) {
	a.mu.RLock()
	e := a.entry(h)
	if e == nil {
		a.mu.RUnlock()
		return nil, fmt.Errorf("%s: %w", h, ErrInvalidAsset)
	}
	state, handle, loadErr, p := e.state, e.handle, e.err, e.path
	a.mu.RUnlock()

	switch state {
	case LoadPending:
		return nil, fmt.Errorf("%s %s: %w", h, p, ErrAssetNotLoaded)
	case LoadFailed:
		return nil, fmt.Errorf("%s %s: %w: %w", h, p, ErrAssetFailed, loadErr)
	}
	res, ok := handle.Resolve()
	if !ok {
		return nil, fmt.Errorf("%s: %w", h, ErrInvalidAsset)
	}
	return res, nil
}

// State returns the load state of h, LoadUnknown for invalid handles.
func (a *Assets) State(h AssetHandle) LoadState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if e := a.entry(h); e != nil {
		return e.state
	}
	return LoadUnknown
}

// Err returns the load error of a failed entry.
func (a *Assets) Err(h AssetHandle) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if e := a.entry(h); e != nil {
		return e.err
	}
	return nil
}

// Remove deletes the entry and releases its reference.
func (a *Assets) Remove(h AssetHandle) bool {
	a.mu.Lock()
	e := a.entry(h)
	if e == nil {
		a.mu.Unlock()
		return false
	}
	handle := e.handle
	*e = assetEntry{gen: e.gen}
	a.freeList = append(a.freeList, h.index)
	a.mu.Unlock()

	handle.Release()
	return true
}

// Len returns the number of entries in any state.
func (a *Assets) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries) - len(a.freeList)
}

// Drop releases every entry. Called when the table is removed from storage.
func (a *Assets) Drop() {
	a.mu.Lock()
	entries := a.entries
	a.entries = nil
	a.freeList = nil
	a.mu.Unlock()

	for _, e := range entries {
		if e.valid {
			e.handle.Release()
		}
	}
}

// AssetLoader materializes resources for the file extensions it declares.
type AssetLoader interface {
	// Extensions lists handled extensions, lower case and without the dot.
	Extensions() []string
	Load(path string) (host.Resource, error)
}

// HostResourceLoader loads through the host's own resource loader. Paths without a
// scheme are resolved against the project root.
type HostResourceLoader struct {
	Loader host.ResourceLoader
}

var hostExtensions = []string{"tscn", "scn", "res", "tres", "jpg", "png"}

func (l HostResourceLoader) Extensions() []string {
	return hostExtensions
}

func (l HostResourceLoader) Load(p string) (host.Resource, error) {
	if !strings.Contains(p, "://") {
		p = "res://" + p
	}
	return l.Loader.Load(p, "")
}

// AssetServer queues asynchronous loads into Assets and performs synchronous loads
// directly.
type AssetServer struct {
	registry host.Registry
	assets   *Assets
	loaders  map[string]AssetLoader
	pending  []AssetHandle
	paths    map[AssetHandle]string
}

// RegisterLoader makes l responsible for its extensions, replacing earlier loaders.
func (s *AssetServer) RegisterLoader(l AssetLoader) {
	if s.loaders == nil {
		s.loaders = make(map[string]AssetLoader)
	}
	for _, ext := range l.Extensions() {
		s.loaders[strings.ToLower(ext)] = l
	}
}

func (s *AssetServer) loaderFor(p string) (AssetLoader, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	l, ok := s.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("%s: %w %q", p, ErrNoLoader, ext)
	}
	return l, nil
}

// LoadSync loads p on the calling goroutine. The host may block while it does.
func (s *AssetServer) LoadSync(p string) (host.Resource, error) {
	l, err := s.loaderFor(p)
	if err != nil {
		return nil, err
	}
	res, err := l.Load(p)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p, err)
	}
	return res, nil
}

// Load reserves an entry for p and queues it. The entry is loaded by the asset system at
// the start of the next update.
func (s *AssetServer) Load(p string) AssetHandle {
	h := s.assets.reserve(p)
	if s.paths == nil {
		s.paths = make(map[AssetHandle]string)
	}
	s.paths[h] = p
	s.pending = append(s.pending, h)
	return h
}

// Pending returns the number of queued loads.
func (s *AssetServer) Pending() int {
	return len(s.pending)
}

// process loads every queued entry and returns the failures.
func (s *AssetServer) process() map[AssetHandle]error {
	var failed map[AssetHandle]error
	for _, h := range s.pending {
		p := s.paths[h]
		delete(s.paths, h)

		res, err := s.LoadSync(p)
		if err != nil {
			s.assets.complete(h, ManagedResourceHandle{}, err)
			if failed == nil {
				failed = make(map[AssetHandle]error)
			}
			failed[h] = err
			continue
		}
		s.assets.complete(h, BindResource(s.registry, res), nil)
	}
	s.pending = s.pending[:0]
	return failed
}

// AssetLoadSystem resolves queued loads. It runs in the First stage.
type AssetLoadSystem struct {
	Server ecs.Singleton[AssetServer]
	Log    ecs.Singleton[Log]
}

func (s *AssetLoadSystem) Execute(frame *ecs.UpdateFrame) {
	server := s.Server.Get()
	if server == nil || len(server.pending) == 0 {
		return
	}
	for h, err := range server.process() {
		logFrom(s.Log.Get()).Warn("asset load failed", zap.Stringer("asset", h), zap.Error(err))
	}
}
