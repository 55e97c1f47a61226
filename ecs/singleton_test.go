package ecs_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/plus3/scenebridge/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type GameConfig struct {
	MaxPlayers int
	Difficulty string
}

func TestSingletonTracksRemoval(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	var accessor ecs.Singleton[GameConfig]
	accessor.Init(storage)
	assert.False(t, accessor.Exists())
	assert.Nil(t, accessor.Get())

	storage.AddSingleton(GameConfig{MaxPlayers: 2})
	require.True(t, accessor.Exists())
	assert.Equal(t, 2, accessor.Get().MaxPlayers)

	storage.RemoveSingleton(reflect.TypeFor[GameConfig]())
	assert.False(t, accessor.Exists(), "cached pointer must not outlive the singleton")

	storage.AddSingleton(GameConfig{MaxPlayers: 8})
	assert.Equal(t, 8, accessor.Get().MaxPlayers)
}

func TestSingletonReplaceKeepsPointer(t *testing.T) {
	storage := ecs.NewStorage(newTestRegistry())

	config := ecs.NewSingleton[GameConfig](storage, GameConfig{MaxPlayers: 1})
	before := config.Get()

	storage.AddSingleton(GameConfig{MaxPlayers: 3})
	assert.Same(t, before, config.Get())
	assert.Equal(t, 3, before.MaxPlayers)
}

// ExampleNewSingleton demonstrates creating and accessing singleton components.
// Singletons are global components not associated with any entity, useful for
// game state, configuration, or other application-wide data.
func ExampleNewSingleton() {
	registry := ecs.NewComponentRegistry()
	storage := ecs.NewStorage(registry)

	config := ecs.NewSingleton[GameConfig](storage, GameConfig{
		MaxPlayers: 4,
		Difficulty: "Normal",
	})

	fmt.Printf("Config: %d players, %s difficulty\n", config.Get().MaxPlayers, config.Get().Difficulty)

	config.Get().Difficulty = "Hard"

	sameConfig := ecs.NewSingleton[GameConfig](storage)
	fmt.Printf("Same config: %s difficulty\n", sameConfig.Get().Difficulty)

	// Output:
	// Config: 4 players, Normal difficulty
	// Same config: Hard difficulty
}
