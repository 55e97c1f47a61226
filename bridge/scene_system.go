package bridge

import (
	"errors"
	"fmt"

	"github.com/plus3/scenebridge/ecs"
	"github.com/plus3/scenebridge/host"
	"go.uber.org/zap"
)

// SceneSpawnSystem materializes pending SceneSpawn descriptors. It runs in PostUpdate.
//
// Errors are per descriptor and never stop the pass. A template that is not a scene is
// reported and the descriptor is skipped. A missing attachment root is reported, the
// instance is destroyed and the descriptor stays pending so a later pass retries it.
type SceneSpawnSystem struct {
	Spawns ecs.Query[struct {
		ecs.EntityId
		*SceneSpawn
	}]
	Tree   ecs.Singleton[SceneTreeRef]
	Assets ecs.Singleton[Assets]
	Server ecs.Singleton[AssetServer]
	Log    ecs.Singleton[Log]

	// AttachRoot names the node instances are attached under.
	AttachRoot string
}

func (s *SceneSpawnSystem) Execute(frame *ecs.UpdateFrame) {
	tree := s.Tree.Get()
	if tree == nil {
		return
	}
	log := logFrom(s.Log.Get())

	for item := range s.Spawns.Values() {
		spawn := item.SceneSpawn
		if spawn.materialized {
			continue
		}

		err := s.materialize(frame, tree, item.EntityId, spawn)
		if err == nil || errors.Is(err, ErrAssetNotLoaded) {
			continue
		}

		fields := []zap.Field{
			zap.Uint64("entity", uint64(item.EntityId)),
			zap.String("path", spawn.source.describe()),
			zap.Error(err),
		}
		switch {
		case errors.Is(err, ErrRootMissing):
			log.Error("scene attachment root missing", append(fields, zap.String("root", s.attachRoot()))...)
		case errors.Is(err, ErrNotAScene):
			log.Error("scene template is not a scene", append(fields, zap.String("expected", "PackedScene"))...)
		default:
			log.Error("scene spawn failed", fields...)
		}
	}
}

func (s *SceneSpawnSystem) attachRoot() string {
	if s.AttachRoot == "" {
		return DefaultConfig().AttachRoot
	}
	return s.AttachRoot
}

func (s *SceneSpawnSystem) materialize(frame *ecs.UpdateFrame, tree *SceneTreeRef, id ecs.EntityId, spawn *SceneSpawn) error {
	template, release, err := s.template(tree.Registry(), spawn.source)
	if err != nil {
		return err
	}
	defer release()

	scene, ok := template.(host.PackedScene)
	if !ok {
		return fmt.Errorf("%w: got %s", ErrNotAScene, template.Class())
	}

	instance, err := scene.Instantiate()
	if err != nil {
		return err
	}

	root, ok := tree.Get().FindNode(s.attachRoot())
	if !ok {
		tree.Registry().Destroy(instance)
		return fmt.Errorf("%q: %w", s.attachRoot(), ErrRootMissing)
	}
	if err := root.AddChild(instance); err != nil {
		tree.Registry().Destroy(instance)
		return fmt.Errorf("attach instance: %w", err)
	}

	if err := applyTransform(instance, spawn.transform); err != nil {
		logFrom(s.Log.Get()).Error("scene transform not applied",
			zap.Uint64("entity", uint64(id)),
			zap.String("path", spawn.source.describe()),
			zap.String("expected", transformCapability(spawn.transform)),
			zap.Error(err),
		)
	}

	spawn.materialized = true
	frame.Commands.AddComponent(id, Wrap(instance))
	return nil
}

// template resolves the scene resource. release must be called once the instance exists.
func (s *SceneSpawnSystem) template(reg host.Registry, source SceneSource) (host.Resource, func(), error) {
	noop := func() {}

	switch source.Kind {
	case SourceResource:
		res, ok := source.Resource.Resolve()
		if !ok {
			return nil, noop, fmt.Errorf("scene resource %d: %w", source.Resource.ID(), host.ErrNotFound)
		}
		return res, noop, nil

	case SourcePath:
		server := s.Server.Get()
		if server == nil {
			return nil, noop, fmt.Errorf("%s: %w", source.Path, ErrNoLoader)
		}
		res, err := server.LoadSync(source.Path)
		if err != nil {
			return nil, noop, err
		}
		handle := BindResource(reg, res)
		return res, handle.Release, nil

	case SourceAsset:
		assets := s.Assets.Get()
		if assets == nil {
			return nil, noop, fmt.Errorf("%s: %w", source.Asset, ErrInvalidAsset)
		}
		res, err := assets.Resolve(source.Asset)
		if err != nil {
			return nil, noop, err
		}
		return res, noop, nil

	default:
		return nil, noop, errors.New("scene spawn has no source")
	}
}

func transformCapability(t *spawnTransform) string {
	if t != nil && t.is3D {
		return "Node3D"
	}
	return "Node2D"
}

func applyTransform(node host.Node, t *spawnTransform) error {
	if t == nil {
		return nil
	}
	if t.is3D {
		n, ok := node.(host.Node3D)
		if !ok {
			return fmt.Errorf("%w: got %s", ErrTransformUnsupported, node.Class())
		}
		n.SetTransform3D(t.t3)
		return nil
	}
	n, ok := node.(host.Node2D)
	if !ok {
		return fmt.Errorf("%w: got %s", ErrTransformUnsupported, node.Class())
	}
	n.SetTransform2D(t.t2)
	return nil
}
