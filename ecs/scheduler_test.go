package ecs_test

import (
	"testing"

	"github.com/plus3/scenebridge/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MovementSystem struct {
	Entities ecs.Query[struct {
		*Position
		*Velocity
	}]
	ExecuteCount int
}

func (s *MovementSystem) Execute(frame *ecs.UpdateFrame) {
	s.ExecuteCount++
	for _, item := range s.Entities.Iter() {
		item.Position.X += item.Velocity.DX * float32(frame.DeltaTime)
		item.Position.Y += item.Velocity.DY * float32(frame.DeltaTime)
	}
}

type HealthSystem struct {
	Entities     ecs.Query[struct{ *Health }]
	ExecuteCount int
	TotalHealth  float64
}

func (s *HealthSystem) Execute(frame *ecs.UpdateFrame) {
	s.ExecuteCount++
	s.TotalHealth = 0
	for item := range s.Entities.Values() {
		s.TotalHealth += float64(item.Health.Current)
	}
}

type stageRecorder struct {
	name  string
	order *[]string
}

func (s *stageRecorder) Execute(frame *ecs.UpdateFrame) {
	*s.order = append(*s.order, s.name+"@"+frame.Stage.String())
}

type Paused struct{}

func TestScheduler(t *testing.T) {
	registry := newTestRegistry()

	t.Run("system execution and query initialization", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)

		movement := &MovementSystem{}
		health := &HealthSystem{}
		scheduler.Register(movement)
		scheduler.Register(health)

		id := storage.Spawn(Position{X: 0, Y: 0}, Velocity{DX: 1, DY: 2})
		storage.Spawn(Health{Current: 100, Max: 100})

		scheduler.Once(1.0)
		scheduler.Once(1.0)

		assert.Equal(t, 2, movement.ExecuteCount)
		assert.Equal(t, 2, health.ExecuteCount)
		assert.Equal(t, 100.0, health.TotalHealth)

		pos := ecs.ReadComponent[Position](storage, id)
		assert.Equal(t, float32(2), pos.X)
		assert.Equal(t, float32(4), pos.Y)
	})

	t.Run("custom state persistence", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)

		storage.Spawn(Health{Current: 50, Max: 100})
		storage.Spawn(Health{Current: 75, Max: 100})

		health := &HealthSystem{}
		scheduler.Register(health)

		scheduler.Once(1.0)
		assert.Equal(t, 125.0, health.TotalHealth)

		storage.Spawn(Health{Current: 25, Max: 100})
		scheduler.Once(1.0)
		assert.Equal(t, 150.0, health.TotalHealth)
	})

	t.Run("stage order and startup runs once", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)

		var order []string
		scheduler.RegisterIn(ecs.PostUpdate, &stageRecorder{name: "post", order: &order})
		scheduler.Register(&stageRecorder{name: "update", order: &order})
		scheduler.RegisterIn(ecs.Startup, &stageRecorder{name: "init", order: &order})
		scheduler.RegisterIn(ecs.First, &stageRecorder{name: "first", order: &order})

		scheduler.Once(0)
		scheduler.Once(0)

		assert.Equal(t, []string{
			"init@Startup", "first@First", "update@Update", "post@PostUpdate",
			"first@First", "update@Update", "post@PostUpdate",
		}, order)
	})

	t.Run("spawns are visible to later stages in the same pass", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)

		health := &HealthSystem{}
		scheduler.Register(systemFunc(func(frame *ecs.UpdateFrame) {
			frame.Commands.Spawn(Health{Current: 10})
		}))
		scheduler.RegisterIn(ecs.PostUpdate, health)

		scheduler.Once(0)
		assert.Equal(t, 10.0, health.TotalHealth)
	})

	t.Run("run conditions gate execution", func(t *testing.T) {
		storage := ecs.NewStorage(registry)
		scheduler := ecs.NewScheduler(storage)

		gated := &HealthSystem{}
		inverse := &HealthSystem{}
		scheduler.Register(gated, ecs.SingletonExists[Paused]())
		scheduler.Register(inverse, ecs.Not(ecs.SingletonExists[Paused]()))

		scheduler.Once(0)
		storage.AddSingleton(Paused{})
		scheduler.Once(0)
		scheduler.Once(0)

		assert.Equal(t, 2, gated.ExecuteCount)
		assert.Equal(t, 1, inverse.ExecuteCount)

		stats := scheduler.GetStats()
		require.Len(t, stats.Systems, 2)
		assert.Equal(t, int64(3), stats.Passes)
		assert.Equal(t, int64(1), stats.Systems[0].SkipCount)
		assert.Equal(t, int64(2), stats.Systems[1].SkipCount)
		assert.Equal(t, int64(3), stats.TotalExecutions)
		assert.Equal(t, "HealthSystem", stats.Systems[0].Name)
	})
}

type systemFunc func(frame *ecs.UpdateFrame)

func (f systemFunc) Execute(frame *ecs.UpdateFrame) { f(frame) }
