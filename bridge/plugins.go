package bridge

import (
	"github.com/plus3/scenebridge/ecs"
	"github.com/plus3/scenebridge/host"
)

// DefaultPlugins returns the infrastructure every driver installs before the user
// builder runs.
func DefaultPlugins() []Plugin {
	return []Plugin{
		TaskPoolPlugin{},
		LogPlugin{},
		TimePlugin{},
		DiagnosticsPlugin{StatsInterval: 60},
		InputPlugin{},
		AssetPlugin{},
		ScenePlugin{},
	}
}

// TaskPoolPlugin inserts a TaskPool sized by Size, or by the app config when zero.
type TaskPoolPlugin struct {
	Size int
}

func (p TaskPoolPlugin) Build(app *App) {
	size := p.Size
	if size == 0 {
		size = app.Config().TaskPoolSize
	}
	app.InsertResource(NewTaskPool(size))
}

// LogPlugin inserts the app logger as the Log resource.
type LogPlugin struct{}

func (LogPlugin) Build(app *App) {
	app.InsertResource(Log{Logger: app.Logger()})
}

// TimePlugin inserts the Time resource.
type TimePlugin struct{}

func (TimePlugin) Build(app *App) {
	app.InsertResource(Time{})
}

// DiagnosticsPlugin inserts FrameCount and Diagnostics and keeps them current.
type DiagnosticsPlugin struct {
	StatsInterval uint64
}

func (p DiagnosticsPlugin) Build(app *App) {
	app.InsertResource(FrameCount(0))
	app.InsertResource(Diagnostics{StatsInterval: p.StatsInterval})
	app.AddSystem(ecs.Last, &DiagnosticsSystem{})
}

// InputPlugin inserts the host input event queue.
type InputPlugin struct{}

func (InputPlugin) Build(app *App) {
	app.InsertResource(Events[host.InputEvent]{})
	app.AddSystem(ecs.First, &EventsUpdateSystem[host.InputEvent]{})
}

// AssetPlugin inserts Assets and an AssetServer loading through the host's resource
// loader, and processes queued loads at the start of every update.
type AssetPlugin struct {
	// Loaders are registered after the host loader and may override its extensions.
	Loaders []AssetLoader
}

func (p AssetPlugin) Build(app *App) {
	app.InsertResource(&Assets{})
	server := AssetServer{
		registry: app.Engine(),
		assets:   GetResource[Assets](app),
	}
	server.RegisterLoader(HostResourceLoader{Loader: app.Engine().ResourceLoader()})
	for _, l := range p.Loaders {
		server.RegisterLoader(l)
	}
	app.InsertResource(server)
	app.AddSystem(ecs.First, &AssetLoadSystem{})
}

// ScenePlugin inserts SceneTreeRef and materializes SceneSpawn descriptors in PostUpdate.
type ScenePlugin struct {
	// AttachRoot overrides the configured attachment root.
	AttachRoot string
}

func (p ScenePlugin) Build(app *App) {
	root := p.AttachRoot
	if root == "" {
		root = app.Config().AttachRoot
	}
	app.InsertResource(NewSceneTreeRef(app.Engine()))
	app.AddSystem(ecs.PostUpdate, &SceneSpawnSystem{AttachRoot: root})
}
