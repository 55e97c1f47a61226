package bridge_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/plus3/scenebridge/bridge"
	"github.com/stretchr/testify/assert"
)

func TestEventsRotate(t *testing.T) {
	var events bridge.Events[string]
	events.Send("a")
	events.Send("b")
	assert.Empty(t, events.Read())
	assert.Equal(t, 2, events.Len())

	events.Update()
	assert.Equal(t, []string{"a", "b"}, events.Read())
	assert.Zero(t, events.Len())

	events.Send("c")
	events.Update()
	assert.Equal(t, []string{"c"}, events.Read())

	events.Update()
	assert.Empty(t, events.Read())
}

func TestEventsReadSurvivesRotation(t *testing.T) {
	var events bridge.Events[string]
	events.Send("a")
	events.Send("b")
	events.Update()
	kept := events.Read()

	events.Update()
	events.Send("x")
	events.Send("y")
	events.Update()

	assert.Equal(t, []string{"a", "b"}, kept)
	assert.Equal(t, []string{"x", "y"}, events.Read())
}

func TestTaskPoolParallelFor(t *testing.T) {
	pool := bridge.NewTaskPool(3)
	assert.Equal(t, 3, pool.Size())

	var sum atomic.Int64
	pool.ParallelFor(100, func(i int) {
		sum.Add(int64(i))
	})
	assert.Equal(t, int64(4950), sum.Load())

	pool.ParallelFor(0, func(int) { t.Fatal("called for an empty range") })
	assert.Positive(t, bridge.NewTaskPool(0).Size())
}

func TestTaskPoolRunReturnsFirstError(t *testing.T) {
	pool := bridge.NewTaskPool(2)
	boom := errors.New("boom")

	err := pool.Run(context.Background(),
		func(context.Context) error { return nil },
		func(context.Context) error { return boom },
		func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	)
	assert.ErrorIs(t, err, boom)
}

func TestSystemDeltaTimer(t *testing.T) {
	now := time.Unix(100, 0)
	timer := bridge.SystemDeltaTimer{Now: func() time.Time { return now }}

	assert.Zero(t, timer.Delta())
	now = now.Add(250 * time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, timer.Delta())
	now = now.Add(time.Second)
	assert.Equal(t, 1.0, timer.DeltaSeconds())
}
