package bridge

import (
	"github.com/plus3/scenebridge/host"
)

// SourceKind tells where a spawn descriptor gets its scene from.
type SourceKind uint8

const (
	SourceResource SourceKind = iota + 1
	SourcePath
	SourceAsset
)

func (k SourceKind) String() string {
	switch k {
	case SourceResource:
		return "resource"
	case SourcePath:
		return "path"
	case SourceAsset:
		return "asset"
	default:
		return "none"
	}
}

// SceneSource is the template of a SceneSpawn. Only the field matching Kind is set.
type SceneSource struct {
	Kind     SourceKind
	Resource ManagedResourceHandle
	Path     string
	Asset    AssetHandle
}

func (s SceneSource) describe() string {
	switch s.Kind {
	case SourcePath:
		return s.Path
	case SourceAsset:
		return s.Asset.String()
	case SourceResource:
		if res, ok := s.Resource.Resolve(); ok && res.Path() != "" {
			return res.Path()
		}
		return "resource"
	default:
		return ""
	}
}

type spawnTransform struct {
	is3D bool
	t2   host.Transform2D
	t3   host.Transform3D
}

// SceneSpawn is a component requesting that a scene be instantiated into the host tree.
// The scene spawn system materializes it during PostUpdate: it attaches the instance under
// the attachment root, applies the optional transform and adds a NativeHandle for the
// instance to the same entity.
//
// A descriptor built from a resource handle owns it; the reference is released when the
// component is dropped.
type SceneSpawn struct {
	source    SceneSource
	transform *spawnTransform

	materialized bool
}

// SceneFromResource requests an instance of an already held scene resource.
func SceneFromResource(res ManagedResourceHandle) SceneSpawn {
	return SceneSpawn{source: SceneSource{Kind: SourceResource, Resource: res}}
}

// SceneFromPath requests an instance of the scene at path. The resource is loaded
// synchronously, blocking the update, when the descriptor is materialized.
func SceneFromPath(path string) SceneSpawn {
	return SceneSpawn{source: SceneSource{Kind: SourcePath, Path: path}}
}

// SceneFromAsset requests an instance of a scene loaded through the AssetServer. The
// descriptor stays pending until the asset has loaded.
func SceneFromAsset(h AssetHandle) SceneSpawn {
	return SceneSpawn{source: SceneSource{Kind: SourceAsset, Asset: h}}
}

// WithTransform2D sets the instance's 2D transform after attachment.
func (s SceneSpawn) WithTransform2D(t host.Transform2D) SceneSpawn {
	s.transform = &spawnTransform{t2: t}
	return s
}

// WithTranslation2D is WithTransform2D with an identity transform moved to (x, y).
func (s SceneSpawn) WithTranslation2D(x, y float64) SceneSpawn {
	return s.WithTransform2D(host.Translation2D(x, y))
}

// WithTransform3D sets the instance's 3D transform after attachment.
func (s SceneSpawn) WithTransform3D(t host.Transform3D) SceneSpawn {
	s.transform = &spawnTransform{is3D: true, t3: t}
	return s
}

// WithTranslation3D is WithTransform3D with an identity transform moved to (x, y, z).
func (s SceneSpawn) WithTranslation3D(x, y, z float64) SceneSpawn {
	return s.WithTransform3D(host.Translation3D(x, y, z))
}

func (s SceneSpawn) Source() SceneSource {
	return s.source
}

func (s SceneSpawn) Transform2D() (host.Transform2D, bool) {
	if s.transform == nil || s.transform.is3D {
		return host.Transform2D{}, false
	}
	return s.transform.t2, true
}

func (s SceneSpawn) Transform3D() (host.Transform3D, bool) {
	if s.transform == nil || !s.transform.is3D {
		return host.Transform3D{}, false
	}
	return s.transform.t3, true
}

// Materialized reports whether the scene was instantiated.
func (s SceneSpawn) Materialized() bool {
	return s.materialized
}

// Drop releases the descriptor's resource handle, if it has one.
func (s SceneSpawn) Drop() {
	if s.source.Kind == SourceResource {
		s.source.Resource.Release()
	}
}

// SceneTreeRef is the resource giving systems access to the host tree and registry.
type SceneTreeRef struct {
	engine host.Engine
}

// NewSceneTreeRef wraps engine.
func NewSceneTreeRef(engine host.Engine) SceneTreeRef {
	return SceneTreeRef{engine: engine}
}

// Get returns the host scene tree.
func (r SceneTreeRef) Get() host.SceneTree {
	return r.engine.SceneTree()
}

// Registry returns the host object registry.
func (r SceneTreeRef) Registry() host.Registry {
	return r.engine
}
