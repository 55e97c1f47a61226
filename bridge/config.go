package bridge

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the bridge settings a host can override through the environment.
type Config struct {
	// AttachRoot names the singleton node, a direct child of the tree root, that spawned
	// scenes are attached under.
	AttachRoot string `env:"BRIDGE_ATTACH_ROOT" envDefault:"Main"`
	LogLevel   string `env:"BRIDGE_LOG_LEVEL" envDefault:"info"`
	// PhysicsTPS is the fixed physics rate hosts should drive PhysicsProcess at.
	PhysicsTPS int `env:"BRIDGE_PHYSICS_TPS" envDefault:"60"`
	// TaskPoolSize bounds TaskPool concurrency; zero means GOMAXPROCS.
	TaskPoolSize int `env:"BRIDGE_TASK_POOL_SIZE" envDefault:"0"`
	// Trace sends update spans to the global OpenTelemetry tracer provider.
	Trace bool `env:"BRIDGE_TRACE" envDefault:"false"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		AttachRoot: "Main",
		LogLevel:   "info",
		PhysicsTPS: 60,
	}
}

// LoadConfig reads Config from environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// NewLogger builds a console logger at the configured level.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", c.LogLevel, err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
