package bridge_test

import (
	"testing"

	"github.com/plus3/scenebridge/bridge"
	"github.com/plus3/scenebridge/ecs"
	"github.com/plus3/scenebridge/host/memhost"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const spritePath = "res://sprite.tscn"

// newWorld returns an engine with a "Main" singleton node and a 2D sprite scene cached
// at spritePath.
func newWorld() (*memhost.Engine, *memhost.PackedScene) {
	engine := memhost.New()
	engine.Tree().AddSingleton("Main")
	scene := engine.NewPackedScene(spritePath, memhost.NodeSpec{Class: "Node2D", Name: "Sprite"})
	engine.Loader().Add(spritePath, scene)
	return engine, scene
}

func newDriver(t *testing.T, engine *memhost.Engine, build func(*bridge.App), opts ...bridge.DriverOption) (*bridge.FrameDriver, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	opts = append([]bridge.DriverOption{
		bridge.WithLogger(zap.New(core)),
		bridge.WithBuilder(build),
	}, opts...)

	driver := bridge.NewFrameDriver(engine, opts...)
	require.NoError(t, driver.Ready())
	t.Cleanup(driver.Shutdown)
	return driver, logs
}

type spawned struct {
	ecs.EntityId
	*bridge.SceneSpawn
	Handle *bridge.NativeHandle `ecs:"optional"`
}

func spawns(app *bridge.App) []spawned {
	var out []spawned
	for item := range ecs.NewView[spawned](app.Storage()).Values() {
		out = append(out, item)
	}
	return out
}

// systemFunc adapts a function to ecs.System.
type systemFunc func(frame *ecs.UpdateFrame)

func (f systemFunc) Execute(frame *ecs.UpdateFrame) {
	f(frame)
}
