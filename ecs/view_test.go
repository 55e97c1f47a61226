package ecs_test

import (
	"testing"

	"github.com/plus3/scenebridge/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewRequiredComponents(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	storage.Spawn(Position{X: 1}, Velocity{DX: 1})
	storage.Spawn(Position{X: 2}, Velocity{DX: 2}, Name{Value: "named"})
	storage.Spawn(Position{X: 3})

	view := ecs.NewView[struct {
		*Position
		*Velocity
	}](storage)

	count := 0
	for _, item := range view.Iter() {
		assert.Equal(t, item.Position.X, item.Velocity.DX)
		count++
	}
	assert.Equal(t, 2, count)
}

func TestViewOptionalComponents(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	storage.Spawn(Position{X: 1})
	storage.Spawn(Position{X: 2}, Name{Value: "two"})

	view := ecs.NewView[struct {
		*Position
		Name *Name `ecs:"optional"`
	}](storage)

	names := map[float32]string{}
	for item := range view.Values() {
		if item.Name != nil {
			names[item.Position.X] = item.Name.Value
		} else {
			names[item.Position.X] = ""
		}
	}
	assert.Equal(t, map[float32]string{1: "", 2: "two"}, names)
}

func TestViewWithoutFilter(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	storage.Spawn(Position{X: 1})
	storage.Spawn(Position{X: 2}, Frozen{})

	view := ecs.NewView[struct {
		*Position
		Frozen *Frozen `ecs:"without"`
	}](storage)

	var xs []float32
	for item := range view.Values() {
		assert.Nil(t, item.Frozen)
		xs = append(xs, item.Position.X)
	}
	assert.Equal(t, []float32{1}, xs)
}

func TestViewEntityIdField(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	id := storage.Spawn(Position{X: 9})

	view := ecs.NewView[struct {
		ecs.EntityId
		*Position
	}](storage)

	item := view.Get(id)
	require.NotNil(t, item)
	assert.Equal(t, id, item.EntityId)

	for entityId, item := range view.Iter() {
		assert.Equal(t, entityId, item.EntityId)
	}
}

func TestViewGetDeletedEntity(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	id := storage.Spawn(Position{})
	view := ecs.NewView[struct{ *Position }](storage)
	require.NotNil(t, view.Get(id))

	storage.Delete(id)
	assert.Nil(t, view.Get(id))
}

func TestViewInvalidDefinitions(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	assert.Panics(t, func() { ecs.NewView[Position](storage) })
	assert.Panics(t, func() {
		ecs.NewView[struct{ Position Position }](storage)
	})
	assert.Panics(t, func() {
		ecs.NewView[struct {
			Position *Position `ecs:"sometimes"`
		}](storage)
	})
}

func TestQueryRequiresExecute(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())
	storage.Spawn(Position{})

	query := ecs.NewQuery[struct{ *Position }](storage)
	assert.Panics(t, func() { query.Iter() })

	query.Execute()
	assert.Equal(t, 1, query.Len())

	storage.Spawn(Position{}, Velocity{})
	query.Execute()
	assert.Equal(t, 2, query.Len(), "new archetypes are picked up on the next Execute")
}
