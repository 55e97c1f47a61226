package bridge_test

import (
	"math/rand/v2"
	"testing"

	"github.com/plus3/scenebridge/bridge"
	"github.com/plus3/scenebridge/ecs"
	"github.com/plus3/scenebridge/host"
	"github.com/plus3/scenebridge/host/memhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeHandleResolve(t *testing.T) {
	engine := memhost.New()
	node := engine.NewNode2D("Player")
	h := bridge.Wrap(node)

	assert.True(t, h.IsValid())
	assert.False(t, bridge.NativeHandle{}.IsValid())
	assert.Equal(t, node.ID(), h.ID())

	got, ok := bridge.Resolve[host.Node2D](engine, h)
	require.True(t, ok)
	assert.Equal(t, node.ID(), got.ID())

	_, ok = bridge.Resolve[host.Node3D](engine, h)
	assert.False(t, ok, "wrong capability")
	assert.Panics(t, func() { bridge.Get[host.Node3D](engine, h) })

	engine.Destroy(node)
	_, ok = bridge.Resolve[host.Node](engine, h)
	assert.False(t, ok, "destroyed object")
	assert.Equal(t, node.ID(), h.ID(), "identity survives the object")
}

func TestTypedHandleComponent(t *testing.T) {
	engine, _ := newWorld()
	camera := engine.NewNode3D("Camera")
	var seen []host.Vec3

	driver, _ := newDriver(t, engine, func(app *bridge.App) {
		bridge.RegisterComponent[bridge.Handle[host.Node3D]](app)
		app.Spawn(bridge.WrapAs[host.Node3D](camera))
		app.AddPhysicsSystem(systemFunc(func(frame *ecs.UpdateFrame) {
			view := ecs.NewView[struct{ Camera *bridge.Handle[host.Node3D] }](frame.Storage)
			for item := range view.Values() {
				node, ok := item.Camera.Resolve(engine)
				if !ok {
					continue
				}
				node.SetTransform3D(host.Translation3D(0, 5, -10))
				seen = append(seen, node.Transform3D().Origin)
			}
		}))
	})

	require.NoError(t, driver.PhysicsProcess(1.0/60))
	assert.Equal(t, []host.Vec3{{X: 0, Y: 5, Z: -10}}, seen)

	h := bridge.WrapAs[host.Node3D](camera)
	assert.Equal(t, camera.ID(), h.ID())
	assert.Equal(t, camera.ID(), h.Get(engine).ID())

	engine.Destroy(camera)
	_, ok := h.Resolve(engine)
	assert.False(t, ok)
	assert.Panics(t, func() { h.Get(engine) })

	require.NoError(t, driver.PhysicsProcess(1.0/60))
	assert.Len(t, seen, 1, "destroyed objects are skipped")
}

func TestManagedResourceCloneAndRelease(t *testing.T) {
	engine := memhost.New()
	res := engine.NewResource("Texture", "res://icon.png")

	r1 := bridge.BindResource(engine, res)
	r2 := r1.Clone()
	assert.Equal(t, 2, res.RefCount())

	r1.Release()
	assert.True(t, engine.Alive(res.ID()))
	assert.Equal(t, 1, res.RefCount())

	r2.Release()
	assert.False(t, engine.Alive(res.ID()))
	assert.Equal(t, 1, engine.DestroyCalls(res.ID()))

	incs, decs := res.Traffic()
	assert.Equal(t, 2, incs)
	assert.Equal(t, 2, decs)
}

func TestManagedResourceCopiesShareOneReference(t *testing.T) {
	engine := memhost.New()
	res := engine.NewResource("Texture", "res://icon.png")

	h := bridge.BindResource(engine, res)
	alias := h
	h.Release()
	alias.Release()
	h.Release()

	_, decs := res.Traffic()
	assert.Equal(t, 1, decs)
	assert.Equal(t, 1, engine.DestroyCalls(res.ID()))
	assert.False(t, alias.Valid())
	_, ok := alias.Resolve()
	assert.False(t, ok)
	assert.Panics(t, func() { alias.Get() })
}

func TestManagedResourceGoneBeforeRelease(t *testing.T) {
	engine := memhost.New()
	res := engine.NewResource("Texture", "res://icon.png")
	h := bridge.BindResource(engine, res)

	engine.Destroy(res)
	clone := h.Clone()
	h.Release()
	clone.Release()

	incs, decs := res.Traffic()
	assert.Equal(t, 1, incs, "a clone of a vanished resource does not increment")
	assert.Equal(t, 0, decs, "releasing a vanished resource does not decrement")
	assert.Equal(t, 1, engine.DestroyCalls(res.ID()))
	assert.Equal(t, res.ID(), clone.ID())
	assert.False(t, clone.Valid())
}

func TestManagedResourceDroppedWithItsEntity(t *testing.T) {
	engine := memhost.New()
	res := engine.NewResource("Texture", "res://icon.png")

	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[bridge.ManagedResourceHandle](registry)
	ecs.RegisterComponent[bridge.NativeHandle](registry)
	storage := ecs.NewStorage(registry)

	id := storage.Spawn(bridge.BindResource(engine, res))
	id = storage.AddComponent(id, bridge.Wrap(engine.NewNode("Holder")))
	assert.True(t, engine.Alive(res.ID()), "archetype moves keep the reference")

	storage.Delete(id)
	assert.False(t, engine.Alive(res.ID()))
	assert.Equal(t, 1, engine.DestroyCalls(res.ID()))
}

func TestManagedResourceTrafficBalances(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for round := 0; round < 50; round++ {
		engine := memhost.New()
		res := engine.NewResource("Mesh", "res://mesh.res")

		live := []bridge.ManagedResourceHandle{bridge.BindResource(engine, res)}
		binds, clones := 1, 0
		for step := 0; step < 40 && len(live) > 0; step++ {
			i := rng.IntN(len(live))
			switch rng.IntN(3) {
			case 0:
				if live[i].Valid() {
					clones++
				}
				live = append(live, live[i].Clone())
			case 1:
				live[i].Release()
				live = append(live[:i], live[i+1:]...)
			case 2:
				live[i].Release()
			}
		}
		for _, h := range live {
			h.Release()
		}

		incs, decs := res.Traffic()
		assert.Equal(t, binds+clones, incs)
		assert.Equal(t, incs, decs)
		assert.Equal(t, 1, engine.DestroyCalls(res.ID()))
	}
}
