package bridge_test

import (
	"testing"

	"github.com/plus3/scenebridge/bridge"
	"github.com/plus3/scenebridge/host"
	"github.com/plus3/scenebridge/host/memhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestSpawnFromPathWithTranslation(t *testing.T) {
	engine, scene := newWorld()
	driver, logs := newDriver(t, engine, func(app *bridge.App) {
		app.Spawn(bridge.SceneFromPath(spritePath).WithTranslation2D(200, 200))
	})

	require.NoError(t, driver.Process(0.016))

	items := spawns(driver.App())
	require.Len(t, items, 1)
	require.True(t, items[0].SceneSpawn.Materialized())
	require.NotNil(t, items[0].Handle)

	node, ok := bridge.Resolve[host.Node2D](engine, *items[0].Handle)
	require.True(t, ok)
	assert.Equal(t, host.Vec2{X: 200, Y: 200}, node.Transform2D().Position)

	parent, ok := node.Parent()
	require.True(t, ok)
	assert.Equal(t, "Main", parent.Name())
	grandparent, ok := parent.Parent()
	require.True(t, ok)
	assert.Equal(t, engine.Tree().Root().ID(), grandparent.ID())

	assert.Equal(t, 1, scene.RefCount(), "the temporary load reference is released")
	assert.Equal(t, 1, engine.Loader().Loads())
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestSpawnIsIdempotent(t *testing.T) {
	engine, scene := newWorld()
	driver, _ := newDriver(t, engine, func(app *bridge.App) {
		app.Spawn(bridge.SceneFromPath(spritePath))
	})

	for range 5 {
		require.NoError(t, driver.Process(0.016))
		require.NoError(t, driver.PhysicsProcess(1.0/60))
	}

	assert.Equal(t, 1, scene.Instances())
	mainNode, _ := engine.SceneTree().FindNode("Main")
	assert.Len(t, mainNode.Children(), 1)
}

func TestSpawnFromResourceThatIsNotAScene(t *testing.T) {
	engine, _ := newWorld()
	texture := engine.NewResource("Texture", "res://icon.png")
	driver, logs := newDriver(t, engine, func(app *bridge.App) {
		app.Spawn(bridge.SceneFromResource(bridge.BindResource(engine, texture)))
	})

	require.NoError(t, driver.Process(0.016))

	items := spawns(driver.App())
	require.Len(t, items, 1)
	assert.False(t, items[0].SceneSpawn.Materialized())
	assert.Nil(t, items[0].Handle)

	errs := logs.FilterMessage("scene template is not a scene")
	require.Equal(t, 1, errs.Len())
	fields := errs.All()[0].ContextMap()
	assert.Equal(t, "PackedScene", fields["expected"])
	assert.Equal(t, "res://icon.png", fields["path"])
	assert.Equal(t, uint64(items[0].EntityId), fields["entity"])
}

func TestSpawnWaitsForAttachmentRoot(t *testing.T) {
	engine := memhost.New()
	scene := engine.NewPackedScene(spritePath, memhost.NodeSpec{Class: "Node2D", Name: "Sprite"})
	engine.Loader().Add(spritePath, scene)

	driver, logs := newDriver(t, engine, func(app *bridge.App) {
		app.Spawn(bridge.SceneFromPath(spritePath))
	})
	objects := engine.ObjectCount()

	require.NoError(t, driver.Process(0.016))
	assert.False(t, spawns(driver.App())[0].SceneSpawn.Materialized())
	assert.Equal(t, 1, logs.FilterMessage("scene attachment root missing").Len())
	assert.Equal(t, objects, engine.ObjectCount(), "the orphan instance is destroyed")

	engine.Tree().AddSingleton("Main")
	require.NoError(t, driver.Process(0.016))

	items := spawns(driver.App())
	require.True(t, items[0].SceneSpawn.Materialized())
	node, ok := bridge.Resolve[host.Node](engine, *items[0].Handle)
	require.True(t, ok)
	parent, _ := node.Parent()
	assert.Equal(t, "Main", parent.Name())
}

func TestSpawnAttachRootFromConfig(t *testing.T) {
	engine, _ := newWorld()
	engine.Tree().AddSingleton("World")
	cfg := bridge.DefaultConfig()
	cfg.AttachRoot = "World"

	driver, _ := newDriver(t, engine, func(app *bridge.App) {
		app.Spawn(bridge.SceneFromPath(spritePath))
	}, bridge.WithConfig(cfg))
	require.NoError(t, driver.Process(0.016))

	world, _ := engine.SceneTree().FindNode("World")
	assert.Len(t, world.Children(), 1)
}

func TestSpawnTransformOnNodeWithoutCapability(t *testing.T) {
	engine, _ := newWorld()
	plain := engine.NewPackedScene("res://plain.tscn", memhost.NodeSpec{Name: "Plain"})
	driver, logs := newDriver(t, engine, func(app *bridge.App) {
		app.Spawn(bridge.SceneFromResource(bridge.BindResource(engine, plain)).WithTranslation3D(1, 2, 3))
	})

	require.NoError(t, driver.Process(0.016))

	items := spawns(driver.App())
	assert.True(t, items[0].SceneSpawn.Materialized(), "instance is kept without its transform")
	errs := logs.FilterMessage("scene transform not applied")
	require.Equal(t, 1, errs.Len())
	assert.Equal(t, "Node3D", errs.All()[0].ContextMap()["expected"])
}

func TestSpawnFromAsset(t *testing.T) {
	engine, scene := newWorld()
	var handle bridge.AssetHandle
	driver, _ := newDriver(t, engine, func(app *bridge.App) {
		handle = bridge.GetResource[bridge.AssetServer](app).Load(spritePath)
		app.Spawn(bridge.SceneFromAsset(handle).WithTransform2D(host.Transform2D{
			Position: host.Vec2{X: 1, Y: 2},
			Rotation: 0.5,
			Scale:    host.Vec2{X: 2, Y: 2},
		}))
	})

	require.NoError(t, driver.Process(0.016))

	assets := bridge.GetResource[bridge.Assets](driver.App())
	assert.Equal(t, bridge.LoadLoaded, assets.State(handle))
	assert.Equal(t, 2, scene.RefCount(), "cache and asset table")

	items := spawns(driver.App())
	require.True(t, items[0].SceneSpawn.Materialized())
	node := bridge.Get[host.Node2D](engine, *items[0].Handle)
	assert.Equal(t, 0.5, node.Transform2D().Rotation)

	driver.Shutdown()
	assert.Equal(t, 1, scene.RefCount(), "teardown releases the asset table")
}

func TestSpawnDescriptorReleasesItsResource(t *testing.T) {
	engine, _ := newWorld()
	texture := engine.NewResource("Texture", "res://icon.png")
	driver, _ := newDriver(t, engine, func(app *bridge.App) {
		app.Spawn(bridge.SceneFromResource(bridge.BindResource(engine, texture)))
	})
	require.NoError(t, driver.Process(0.016))
	require.True(t, engine.Alive(texture.ID()))

	driver.App().Storage().Delete(spawns(driver.App())[0].EntityId)
	assert.False(t, engine.Alive(texture.ID()))
	assert.Equal(t, 1, engine.DestroyCalls(texture.ID()))
}

func TestSceneSpawnAccessors(t *testing.T) {
	spawn := bridge.SceneFromPath("res://a.tscn").WithTranslation2D(3, 4)
	assert.Equal(t, bridge.SourcePath, spawn.Source().Kind)
	assert.Equal(t, "res://a.tscn", spawn.Source().Path)

	t2, ok := spawn.Transform2D()
	require.True(t, ok)
	assert.Equal(t, host.Translation2D(3, 4), t2)
	_, ok = spawn.Transform3D()
	assert.False(t, ok)

	spawn = spawn.WithTranslation3D(1, 1, 1)
	_, ok = spawn.Transform2D()
	assert.False(t, ok, "the last transform wins")
	assert.False(t, spawn.Materialized())
}

func TestSpawnFailuresDoNotStopOtherSpawns(t *testing.T) {
	engine, scene := newWorld()
	bogus := engine.NewPackedScene("res://bogus.tscn", memhost.NodeSpec{Class: "Bogus", Name: "Broken"})
	engine.Loader().Add("res://bogus.tscn", bogus)

	failing := []string{"res://missing.tscn", "res://notes.xyz", "res://bogus.tscn"}
	driver, logs := newDriver(t, engine, func(app *bridge.App) {
		app.Spawn(bridge.SceneFromPath(failing[0]))
		app.Spawn(bridge.SceneFromPath(spritePath))
		app.Spawn(bridge.SceneFromPath(failing[1]))
		app.Spawn(bridge.SceneFromPath(failing[2]))
	})

	require.NoError(t, driver.Process(0.016))

	assert.Equal(t, 1, scene.Instances())
	assert.Zero(t, bogus.Instances())
	mainNode, _ := engine.SceneTree().FindNode("Main")
	assert.Len(t, mainNode.Children(), 1)

	errs := logs.FilterMessage("scene spawn failed")
	require.Equal(t, len(failing), errs.Len())
	var paths []string
	for _, entry := range errs.All() {
		paths = append(paths, entry.ContextMap()["path"].(string))
	}
	assert.ElementsMatch(t, failing, paths)

	materialized := map[string]bool{}
	for _, item := range spawns(driver.App()) {
		materialized[item.SceneSpawn.Source().Path] = item.SceneSpawn.Materialized()
		if item.SceneSpawn.Materialized() {
			assert.NotNil(t, item.Handle)
		} else {
			assert.Nil(t, item.Handle)
		}
	}
	assert.Equal(t, map[string]bool{
		spritePath: true,
		failing[0]: false,
		failing[1]: false,
		failing[2]: false,
	}, materialized)

	require.NoError(t, driver.Process(0.016))
	assert.Equal(t, 1, scene.Instances())
	assert.Equal(t, 2*len(failing), logs.FilterMessage("scene spawn failed").Len(), "failed spawns are retried")
}
