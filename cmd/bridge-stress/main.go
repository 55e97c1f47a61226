// Command bridge-stress drives a FrameDriver against the in-memory host at full speed,
// spawning and despawning scene instances every frame, and reports update timings and
// host object accounting.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"
	"time"

	"github.com/plus3/scenebridge/bridge"
	"github.com/plus3/scenebridge/ecs"
	"github.com/plus3/scenebridge/host/memhost"
	"go.uber.org/zap"
)

const (
	scenePath   = "res://stress/unit.tscn"
	texturePath = "res://stress/unit.png"
)

// Lifetime despawns its entity after a number of physics frames.
type Lifetime struct {
	Frames int
}

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	spawnRate := flag.Int("spawn-rate", 50, "Scene instances requested per physics frame.")
	lifetime := flag.Int("lifetime", 120, "Physics frames an instance lives before it is despawned.")
	physicsEvery := flag.Int("physics-every", 2, "Run one physics frame every N visual frames.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	cfg, err := bridge.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	engine := memhost.New()
	engine.Tree().AddSingleton(cfg.AttachRoot)
	scene := engine.NewPackedScene(scenePath, memhost.NodeSpec{
		Class: "Node2D",
		Name:  "Unit",
		Children: []memhost.NodeSpec{
			{Class: "Node2D", Name: "Body"},
			{Name: "Brain"},
		},
	})
	engine.Loader().Add(scenePath, scene)
	texture := engine.NewResource("Texture", texturePath)
	engine.Loader().Add(texturePath, texture)

	driver := bridge.NewFrameDriver(engine,
		bridge.WithConfig(cfg),
		bridge.WithLogger(logger),
		bridge.WithBuilder(func(app *bridge.App) {
			bridge.RegisterComponent[Lifetime](app)
			app.AddPhysicsSystem(&ChurnSystem{Rate: *spawnRate, Lifetime: *lifetime})
		}),
	)
	if err := driver.Ready(); err != nil {
		logger.Fatal("app build failed", zap.Error(err))
	}

	logger.Info("starting bridge stress test",
		zap.Duration("duration", *duration),
		zap.Int("spawn_rate", *spawnRate),
		zap.Int("lifetime", *lifetime),
	)

	report := &Report{
		Duration:       *duration,
		SpawnRate:      *spawnRate,
		Lifetime:       *lifetime,
		PhysicsEvery:   *physicsEvery,
		GCPauseMetrics: *gcPauseMetrics,
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
	lastFrameTime := time.Now()
	frame := 0

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			deltaTime := time.Since(lastFrameTime).Seconds()
			lastFrameTime = time.Now()

			if frame%max(*physicsEvery, 1) == 0 {
				updateStart := time.Now()
				if err := driver.PhysicsProcess(1.0 / float64(cfg.PhysicsTPS)); err != nil {
					logger.Error("physics update failed", zap.Error(err))
					break Loop
				}
				report.PhysicsTime.Samples = append(report.PhysicsTime.Samples, time.Since(updateStart))
			}

			updateStart := time.Now()
			if err := driver.Process(deltaTime); err != nil {
				logger.Error("visual update failed", zap.Error(err))
				break Loop
			}
			report.VisualTime.Samples = append(report.VisualTime.Samples, time.Since(updateStart))
			frame++
		}
	}

	report.TotalTime = time.Since(startTime)
	report.PhysicsTime.Finalize()
	report.VisualTime.Finalize()
	if app := driver.App(); app != nil {
		report.Storage = app.Storage().CollectStats()
		report.Scheduler = app.Scheduler().GetStats()
	}
	report.LiveObjectsBeforeShutdown = engine.ObjectCount()

	driver.Shutdown()
	runtime.ReadMemStats(&report.MemStatsEnd)
	report.LiveObjectsAfterShutdown = engine.ObjectCount()
	report.SceneRefs = scene.RefCount()
	report.TextureRefs = texture.RefCount()

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		logger.Fatal("failed to generate report", zap.Error(err))
	}
	fmt.Println("--- End of Report ---")
}

// ChurnSystem requests Rate scene instances per physics frame and despawns instances whose
// lifetime ran out, destroying their host nodes. Every tenth request is backed by a
// texture reference so managed handles churn as well.
type ChurnSystem struct {
	Units ecs.Query[struct {
		ecs.EntityId
		*Lifetime
		Handle *bridge.NativeHandle `ecs:"optional"`
	}]
	Tree   ecs.Singleton[bridge.SceneTreeRef]
	Server ecs.Singleton[bridge.AssetServer]

	Rate     int
	Lifetime int
}

func (s *ChurnSystem) Execute(frame *ecs.UpdateFrame) {
	registry := s.Tree.Get().Registry()

	for unit := range s.Units.Values() {
		unit.Lifetime.Frames--
		if unit.Lifetime.Frames > 0 {
			continue
		}
		if unit.Handle != nil {
			if node, ok := registry.Lookup(unit.Handle.ID()); ok {
				registry.Destroy(node)
			}
		}
		frame.Commands.Delete(unit.EntityId)
	}

	for i := range s.Rate {
		spawn := bridge.SceneFromPath(scenePath).WithTranslation2D(rand.Float64()*1000, rand.Float64()*1000)
		if i%10 == 0 {
			res, err := s.Server.Get().LoadSync(texturePath)
			if err == nil {
				frame.Commands.Spawn(spawn, Lifetime{Frames: s.Lifetime}, bridge.BindResource(registry, res))
				continue
			}
		}
		frame.Commands.Spawn(spawn, Lifetime{Frames: s.Lifetime})
	}
}
