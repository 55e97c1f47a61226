// Command bridge-demo runs the bridge against the in-memory host inside an ebiten window.
// Ebiten's Update drives physics frames and Draw drives visual frames. Click to spawn an
// orb, press Q or Escape to quit.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/plus3/scenebridge/bridge"
	"github.com/plus3/scenebridge/host"
	"github.com/plus3/scenebridge/host/memhost"
	"go.uber.org/zap"
)

const (
	ScreenWidth  = 1280
	ScreenHeight = 720
	orbPath      = "res://orb.tscn"
)

func main() {
	orbs := flag.Int("orbs", 64, "Number of orbs spawned at startup.")
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
	bridge.SetLogger(logger)

	engine := memhost.New()
	engine.Tree().AddSingleton(cfg.AttachRoot)
	engine.Loader().Add(orbPath, engine.NewPackedScene(orbPath, memhost.NodeSpec{
		Class: "Node2D",
		Name:  "Orb",
		Props: map[string]any{"radius": 6.0},
	}))

	bridge.RegisterApp(func(app *bridge.App) {
		buildDemo(app, *orbs)
	})

	driver := bridge.NewFrameDriver(engine, bridge.WithConfig(cfg), bridge.WithLogger(logger))
	if err := driver.Ready(); err != nil {
		logger.Fatal("app build failed", zap.Error(err))
	}
	defer driver.Shutdown()

	ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	ebiten.SetWindowTitle("scenebridge demo")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(cfg.PhysicsTPS)

	game := &Game{
		driver:    driver,
		physicsDt: 1 / float64(cfg.PhysicsTPS),
		logger:    logger,
		lastDraw:  time.Now(),
	}
	if err := ebiten.RunGame(game); err != nil {
		logger.Error("game stopped", zap.Error(err))
		os.Exit(1)
	}
}

// Game adapts the frame driver to ebiten's callbacks.
type Game struct {
	driver    *bridge.FrameDriver
	physicsDt float64
	logger    *zap.Logger

	lastDraw time.Time
	drawErr  error
}

func (g *Game) Update() error {
	if g.drawErr != nil {
		return g.drawErr
	}
	if ebiten.IsKeyPressed(ebiten.KeyQ) || ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		g.driver.InjectInput(host.InputEvent{
			Action:   spawnAction,
			Pressed:  true,
			Position: host.Vec2{X: float64(x), Y: float64(y)},
		})
	}

	return g.driver.PhysicsProcess(g.physicsDt)
}

func (g *Game) Draw(screen *ebiten.Image) {
	now := time.Now()
	delta := now.Sub(g.lastDraw).Seconds()
	g.lastDraw = now

	if app := g.driver.App(); app != nil {
		if target := bridge.GetResource[RenderTarget](app); target != nil {
			target.Screen = screen
		}
	}
	if err := g.driver.Process(delta); err != nil {
		g.drawErr = err
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
