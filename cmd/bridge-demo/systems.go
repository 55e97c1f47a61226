package main

import (
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/plus3/scenebridge/bridge"
	"github.com/plus3/scenebridge/ecs"
	"github.com/plus3/scenebridge/host"
	"go.uber.org/zap"
)

const spawnAction = "spawn"

var pastelColors = []color.RGBA{
	{255, 179, 186, 255},
	{179, 229, 252, 255},
	{255, 223, 186, 255},
	{186, 255, 201, 255},
	{217, 186, 255, 255},
}

// Orbit moves an orb around a fixed center.
type Orbit struct {
	CenterX, CenterY float64
	Radius           float64
	Angle            float64
	Speed            float64
	Color            int
}

func (o Orbit) position() (float64, float64) {
	return o.CenterX + math.Cos(o.Angle)*o.Radius, o.CenterY + math.Sin(o.Angle)*o.Radius
}

// RenderTarget holds the screen of the running Draw call.
type RenderTarget struct {
	Screen *ebiten.Image
}

func buildDemo(app *bridge.App, orbs int) {
	bridge.RegisterComponent[Orbit](app)
	app.InsertResource(RenderTarget{})

	app.AddStartupSystem(&SeedSystem{Count: orbs})
	app.AddSystem(ecs.Update, &SpawnOnClickSystem{})
	app.AddPhysicsSystem(&OrbitSystem{})
	app.AddVisualSystem(&RenderSystem{})
	app.AddVisualSystem(&StatsLogSystem{})
}

func newOrb(x, y float64) (bridge.SceneSpawn, Orbit) {
	orbit := Orbit{
		CenterX: x,
		CenterY: y,
		Radius:  20 + rand.Float64()*80,
		Angle:   rand.Float64() * 2 * math.Pi,
		Speed:   0.5 + rand.Float64()*2,
		Color:   rand.IntN(len(pastelColors)),
	}
	px, py := orbit.position()
	return bridge.SceneFromPath(orbPath).WithTranslation2D(px, py), orbit
}

// SeedSystem spawns the initial orbs.
type SeedSystem struct {
	Count int
}

func (s *SeedSystem) Execute(frame *ecs.UpdateFrame) {
	for range s.Count {
		spawn, orbit := newOrb(rand.Float64()*ScreenWidth, rand.Float64()*ScreenHeight)
		frame.Commands.Spawn(spawn, orbit)
	}
}

// SpawnOnClickSystem spawns an orb for every spawn input event.
type SpawnOnClickSystem struct {
	Input ecs.Singleton[bridge.Events[host.InputEvent]]
}

func (s *SpawnOnClickSystem) Execute(frame *ecs.UpdateFrame) {
	events := s.Input.Get()
	if events == nil {
		return
	}
	for _, ev := range events.Read() {
		if ev.Action != spawnAction || !ev.Pressed {
			continue
		}
		spawn, orbit := newOrb(ev.Position.X, ev.Position.Y)
		frame.Commands.Spawn(spawn, orbit)
	}
}

// OrbitSystem advances orbits in parallel and then writes the results to the host nodes.
type OrbitSystem struct {
	Orbs ecs.Query[struct {
		*Orbit
		*bridge.NativeHandle
	}]
	Pool ecs.Singleton[bridge.TaskPool]
	Tree ecs.Singleton[bridge.SceneTreeRef]

	items []*Orbit
}

func (s *OrbitSystem) Execute(frame *ecs.UpdateFrame) {
	s.items = s.items[:0]
	for orb := range s.Orbs.Values() {
		s.items = append(s.items, orb.Orbit)
	}

	dt := frame.DeltaTime
	s.Pool.Get().ParallelFor(len(s.items), func(i int) {
		s.items[i].Angle += s.items[i].Speed * dt
	})

	registry := s.Tree.Get().Registry()
	for orb := range s.Orbs.Values() {
		node, ok := bridge.Resolve[host.Node2D](registry, *orb.NativeHandle)
		if !ok {
			continue
		}
		x, y := orb.Orbit.position()
		t := node.Transform2D()
		t.Position = host.Vec2{X: x, Y: y}
		node.SetTransform2D(t)
	}
}

// RenderSystem draws every materialized orb at its host node position.
type RenderSystem struct {
	Orbs ecs.Query[struct {
		*Orbit
		*bridge.NativeHandle
	}]
	Target ecs.Singleton[RenderTarget]
	Tree   ecs.Singleton[bridge.SceneTreeRef]
}

func (s *RenderSystem) Execute(frame *ecs.UpdateFrame) {
	target := s.Target.Get()
	if target == nil || target.Screen == nil {
		return
	}
	target.Screen.Fill(color.RGBA{30, 30, 36, 255})

	registry := s.Tree.Get().Registry()
	for orb := range s.Orbs.Values() {
		node, ok := bridge.Resolve[host.Node2D](registry, *orb.NativeHandle)
		if !ok {
			continue
		}
		pos := node.Transform2D().Position
		vector.DrawFilledCircle(target.Screen, float32(pos.X), float32(pos.Y), 6, pastelColors[orb.Color], true)
	}
}

// StatsLogSystem logs diagnostics every few seconds of visual time.
type StatsLogSystem struct {
	Diagnostics ecs.Singleton[bridge.Diagnostics]
	Log         ecs.Singleton[bridge.Log]

	timer bridge.SystemDeltaTimer
	since float64
}

func (s *StatsLogSystem) Execute(frame *ecs.UpdateFrame) {
	s.since += s.timer.DeltaSeconds()
	if s.since < 5 {
		return
	}
	s.since = 0

	diag := s.Diagnostics.Get()
	if diag == nil || diag.Storage == nil {
		return
	}
	s.Log.Get().Info("frame stats",
		zap.Uint64("updates", diag.Updates),
		zap.Duration("avg_update", diag.AvgUpdate),
		zap.Duration("max_update", diag.MaxUpdate),
		zap.Int("entities", diag.Storage.TotalEntityCount),
	)
}
