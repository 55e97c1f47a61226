package bridge

import (
	"bytes"
	"context"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/plus3/scenebridge/host"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const tracerName = "github.com/plus3/scenebridge/bridge"

// DriverState is the lifecycle state of a FrameDriver.
type DriverState uint8

const (
	StateUninitialized DriverState = iota
	StateReady
	StateFailed
	StateStopped
)

func (s DriverState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// FrameDriver connects host lifecycle callbacks to an App. The host calls Ready once its
// tree is live, then Process once per rendered frame and PhysicsProcess at the fixed
// physics rate. Callbacks arriving from different goroutines run one at a time; a callback
// made from inside a running one is a fault.
//
// A panic inside an update is fatal to the simulation: the App is torn down and the panic
// is returned to the host as an *UpdatePanicError. Every later callback does nothing.
type FrameDriver struct {
	engine  host.Engine
	builder func(*App)
	config  Config
	logger  *zap.Logger
	tracer  trace.Tracer
	tp      trace.TracerProvider

	mu    sync.Mutex
	owner atomic.Uint64 // goroutine holding mu, 0 when idle
	app   atomic.Pointer[App]
	state atomic.Uint32
}

type DriverOption func(*FrameDriver)

// WithBuilder sets the function that configures the App. Without it the driver uses the
// builder passed to RegisterApp.
func WithBuilder(build func(*App)) DriverOption {
	return func(d *FrameDriver) {
		d.builder = build
	}
}

func WithConfig(cfg Config) DriverOption {
	return func(d *FrameDriver) {
		d.config = cfg
	}
}

func WithLogger(logger *zap.Logger) DriverOption {
	return func(d *FrameDriver) {
		d.logger = logger
	}
}

// WithTracerProvider sets where update spans go. By default spans go to the global
// provider when Config.Trace is set and nowhere otherwise.
func WithTracerProvider(tp trace.TracerProvider) DriverOption {
	return func(d *FrameDriver) {
		d.tp = tp
	}
}

// NewFrameDriver creates a driver for engine. No App exists until Ready.
func NewFrameDriver(engine host.Engine, opts ...DriverOption) *FrameDriver {
	d := &FrameDriver{
		engine: engine,
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = Logger()
	}
	if d.tp == nil {
		if d.config.Trace {
			d.tp = otel.GetTracerProvider()
		} else {
			d.tp = noop.NewTracerProvider()
		}
	}
	d.tracer = d.tp.Tracer(tracerName)
	return d
}

// State returns the driver's lifecycle state.
func (d *FrameDriver) State() DriverState {
	return DriverState(d.state.Load())
}

// App returns the running App, or nil before Ready and after a fault.
func (d *FrameDriver) App() *App {
	return d.app.Load()
}

// Ready builds the App: the infrastructure plugins first, then the user builder. It does
// nothing in an editor context or when the App was already built. A panicking builder
// leaves the driver failed.
func (d *FrameDriver) Ready() (err error) {
	if d.engine.IsEditorHint() {
		return nil
	}
	d.lock()
	defer d.unlock()

	if d.State() != StateUninitialized {
		return nil
	}

	build := d.builder
	if build == nil {
		build = registeredApp()
	}

	app := NewApp(d.engine, d.config, d.logger)
	defer func() {
		if r := recover(); r != nil {
			d.state.Store(uint32(StateFailed))
			perr := &UpdatePanicError{Value: r, Stack: debug.Stack()}
			d.logger.Error("app build panicked", zap.Any("panic", r), zap.ByteString("stack", perr.Stack))
			d.teardown(app)
			err = perr
		}
	}()

	app.AddPlugins(DefaultPlugins()...)
	if build != nil {
		build(app)
	} else {
		d.logger.Warn("no app builder registered, running infrastructure only")
	}

	d.app.Store(app)
	d.state.Store(uint32(StateReady))
	d.logger.Debug("app ready",
		zap.Int("systems", len(app.Scheduler().GetStats().Systems)),
		zap.String("attach_root", d.config.AttachRoot),
	)
	return nil
}

// Process runs one visual-frame update.
func (d *FrameDriver) Process(delta float64) error {
	return d.run(FrameVisual, delta)
}

// PhysicsProcess runs one physics-frame update.
func (d *FrameDriver) PhysicsProcess(delta float64) error {
	return d.run(FramePhysics, delta)
}

func (d *FrameDriver) run(kind FrameKind, delta float64) error {
	if d.engine.IsEditorHint() {
		return nil
	}
	d.lock()
	defer d.unlock()

	app := d.app.Load()
	if app == nil {
		return nil
	}

	_, span := d.tracer.Start(context.Background(), "scenebridge.update",
		trace.WithAttributes(
			attribute.String("frame.kind", kind.String()),
			attribute.Float64("frame.delta", delta),
		),
	)
	defer span.End()

	start := time.Now()
	if perr := app.runFrame(kind, delta); perr != nil {
		span.RecordError(perr)
		span.SetStatus(codes.Error, "update panicked")
		d.fail(app, perr)
		return perr
	}
	app.recordUpdate(time.Since(start))
	return nil
}

// fail discards the App after a faulted update.
func (d *FrameDriver) fail(app *App, perr *UpdatePanicError) {
	d.app.Store(nil)
	d.state.Store(uint32(StateFailed))
	d.logger.Error("update panicked",
		zap.Stringer("frame", perr.Frame),
		zap.Any("panic", perr.Value),
		zap.ByteString("stack", perr.Stack),
	)
	d.teardown(app)
}

func (d *FrameDriver) teardown(app *App) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("app teardown panicked", zap.Any("panic", r))
		}
	}()
	app.Close()
}

// Shutdown tears the App down, releasing every host reference it owns. Later callbacks do
// nothing.
func (d *FrameDriver) Shutdown() {
	d.lock()
	defer d.unlock()

	app := d.app.Swap(nil)
	d.state.Store(uint32(StateStopped))
	if app != nil {
		d.teardown(app)
	}
}

// InjectInput queues a host input event for the next update. It reports false when no
// App is running.
func (d *FrameDriver) InjectInput(ev host.InputEvent) bool {
	if d.engine.IsEditorHint() {
		return false
	}
	d.lock()
	defer d.unlock()

	app := d.app.Load()
	if app == nil {
		return false
	}
	events := GetResource[Events[host.InputEvent]](app)
	if events == nil {
		return false
	}
	events.Send(ev)
	return true
}

// lock serializes callbacks. Callbacks from other goroutines wait their turn. A callback
// re-entered on the goroutine already holding the driver panics instead of deadlocking;
// inside an update that panic becomes an update fault.
func (d *FrameDriver) lock() {
	gid := goroutineID()
	if d.owner.Load() == gid {
		panic("scenebridge: frame driver callback re-entered from inside a running callback")
	}
	d.mu.Lock()
	d.owner.Store(gid)
}

func (d *FrameDriver) unlock() {
	d.owner.Store(0)
	d.mu.Unlock()
}

// goroutineID reads the calling goroutine's id from its stack header.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
