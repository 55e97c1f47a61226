package bridge

import (
	"reflect"
	"runtime/debug"
	"sync"
	"time"

	"github.com/plus3/scenebridge/ecs"
	"github.com/plus3/scenebridge/host"
	"go.uber.org/zap"
)

// Plugin configures an App: it inserts resources and registers systems.
type Plugin interface {
	Build(app *App)
}

// PluginFunc adapts a function to Plugin.
type PluginFunc func(app *App)

func (f PluginFunc) Build(app *App) {
	f(app)
}

// App is one simulation instance: a world, its scheduler and the host engine it drives.
type App struct {
	engine host.Engine
	config Config
	logger *zap.Logger

	registry  *ecs.ComponentRegistry
	storage   *ecs.Storage
	scheduler *ecs.Scheduler
	plugins   map[reflect.Type]struct{}
}

// NewApp creates an empty App with the bridge's own component types registered.
func NewApp(engine host.Engine, cfg Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = Logger()
	}
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[NativeHandle](registry)
	ecs.RegisterComponent[ManagedResourceHandle](registry)
	ecs.RegisterComponent[SceneSpawn](registry)

	storage := ecs.NewStorage(registry)
	return &App{
		engine:    engine,
		config:    cfg,
		logger:    logger,
		registry:  registry,
		storage:   storage,
		scheduler: ecs.NewScheduler(storage),
		plugins:   make(map[reflect.Type]struct{}),
	}
}

// AddPlugins builds each plugin in order. A plugin type that was already added is
// skipped; PluginFunc values are always built.
func (a *App) AddPlugins(plugins ...Plugin) *App {
	for _, p := range plugins {
		t := reflect.TypeOf(p)
		if t.Kind() != reflect.Func {
			if _, ok := a.plugins[t]; ok {
				continue
			}
			a.plugins[t] = struct{}{}
		}
		p.Build(a)
	}
	return a
}

// HasPlugin reports whether a plugin of the same type as p was added.
func (a *App) HasPlugin(p Plugin) bool {
	_, ok := a.plugins[reflect.TypeOf(p)]
	return ok
}

// AddSystem registers system in stage, gated by conditions.
func (a *App) AddSystem(stage ecs.Stage, system ecs.System, conditions ...ecs.Condition) *App {
	a.scheduler.RegisterIn(stage, system, conditions...)
	return a
}

// AddStartupSystem registers a system that runs once, at the start of the first update.
func (a *App) AddStartupSystem(system ecs.System) *App {
	return a.AddSystem(ecs.Startup, system)
}

// AddVisualSystem registers an Update-stage system that only runs in visual frames.
func (a *App) AddVisualSystem(system ecs.System, conditions ...ecs.Condition) *App {
	return a.AddSystem(ecs.Update, system, append([]ecs.Condition{InVisualFrame()}, conditions...)...)
}

// AddPhysicsSystem registers an Update-stage system that only runs in physics frames.
func (a *App) AddPhysicsSystem(system ecs.System, conditions ...ecs.Condition) *App {
	return a.AddSystem(ecs.Update, system, append([]ecs.Condition{InPhysicsFrame()}, conditions...)...)
}

// InsertResource stores value as a singleton, replacing any previous value of its type.
func (a *App) InsertResource(value any) *App {
	a.storage.AddSingleton(value)
	return a
}

// Spawn creates an entity immediately.
func (a *App) Spawn(components ...any) ecs.EntityId {
	return a.storage.Spawn(components...)
}

// RegisterComponent registers T with the app's component registry.
func RegisterComponent[T any](a *App) *App {
	ecs.RegisterComponent[T](a.registry)
	return a
}

// GetResource returns the app's singleton of type T, or nil.
func GetResource[T any](a *App) *T {
	return ecs.ReadSingleton[T](a.storage)
}

func (a *App) Engine() host.Engine              { return a.engine }
func (a *App) Config() Config                   { return a.config }
func (a *App) Logger() *zap.Logger              { return a.logger }
func (a *App) Registry() *ecs.ComponentRegistry { return a.registry }
func (a *App) Storage() *ecs.Storage            { return a.storage }
func (a *App) Scheduler() *ecs.Scheduler        { return a.scheduler }

// Update runs one scheduler pass outside of any frame kind.
func (a *App) Update(delta float64) {
	a.scheduler.Once(delta)
}

// Close deletes every entity and resource, releasing the host references they own.
func (a *App) Close() {
	a.storage.Clear()
}

// runFrame performs one update with the frame marker present. A panic inside the update is
// recovered and returned; the marker is removed either way.
func (a *App) runFrame(kind FrameKind, delta float64) (perr *UpdatePanicError) {
	a.storage.AddSingleton(kind.marker())
	defer a.storage.RemoveSingleton(kind.markerType())
	defer func() {
		if r := recover(); r != nil {
			perr = &UpdatePanicError{Frame: kind, Value: r, Stack: debug.Stack()}
		}
	}()

	if t := GetResource[Time](a); t != nil {
		t.advance(kind, delta)
	}
	a.scheduler.Once(delta)
	return nil
}

func (a *App) recordUpdate(elapsed time.Duration) {
	if d := GetResource[Diagnostics](a); d != nil {
		d.record(elapsed)
	}
}

var (
	appBuilderMu sync.Mutex
	appBuilder   func(*App)
)

// RegisterApp sets the process-wide app builder used by drivers created without
// WithBuilder. Only the first registration takes effect; later calls return false.
func RegisterApp(build func(*App)) bool {
	appBuilderMu.Lock()
	defer appBuilderMu.Unlock()
	if appBuilder != nil {
		return false
	}
	appBuilder = build
	return true
}

func registeredApp() func(*App) {
	appBuilderMu.Lock()
	defer appBuilderMu.Unlock()
	return appBuilder
}
