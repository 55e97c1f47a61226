package ecs

import "reflect"

// Commands provides a buffer for deferred ECS operations that are executed at the end of a stage.
// This prevents structural changes to the ECS storage during system execution.
type Commands struct {
	spawns           []spawnCommand
	deletes          []EntityId
	adds             []addComponentCommand
	removes          []removeComponentCommand
	singletonInserts []any
	singletonRemoves []reflect.Type
	defers           []deferCommand
}

// NewCommands returns an empty command buffer.
func NewCommands() *Commands {
	return &Commands{}
}

type deferCommand struct {
	fn func()
}

type spawnCommand struct {
	components []any
}

type addComponentCommand struct {
	entity    EntityId
	component any
}

type removeComponentCommand struct {
	entity   EntityId
	compType reflect.Type
}

// Defer queues a function execution operation.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, deferCommand{fn: fn})
}

// Spawn queues an entity spawn operation with the given components.
func (c *Commands) Spawn(components ...any) {
	c.spawns = append(c.spawns, spawnCommand{components: components})
}

// Delete queues an entity deletion operation.
func (c *Commands) Delete(entity EntityId) {
	c.deletes = append(c.deletes, entity)
}

// AddComponent queues a component addition operation.
func (c *Commands) AddComponent(entity EntityId, component any) {
	c.adds = append(c.adds, addComponentCommand{
		entity:    entity,
		component: component,
	})
}

// RemoveComponent queues a component removal operation.
func (c *Commands) RemoveComponent(entity EntityId, compType reflect.Type) {
	c.removes = append(c.removes, removeComponentCommand{
		entity:   entity,
		compType: compType,
	})
}

// InsertSingleton queues adding (or replacing) a singleton.
func (c *Commands) InsertSingleton(value any) {
	c.singletonInserts = append(c.singletonInserts, value)
}

// RemoveSingleton queues removing the singleton of the given type.
func (c *Commands) RemoveSingleton(t reflect.Type) {
	c.singletonRemoves = append(c.singletonRemoves, t)
}

// Len returns the number of queued operations.
func (c *Commands) Len() int {
	return len(c.spawns) + len(c.deletes) + len(c.adds) + len(c.removes) +
		len(c.singletonInserts) + len(c.singletonRemoves) + len(c.defers)
}

// Flush flushes all commands to the provided storage, reseting the buffer state.
//
// Adding or removing a component moves the entity and changes its id; later commands in the
// same flush that target the old id are redirected to the new one.
func (c *Commands) Flush(storage *Storage) {
	deletedEntities := make(map[EntityId]bool)
	moved := make(map[EntityId]EntityId)

	resolve := func(id EntityId) EntityId {
		for {
			next, ok := moved[id]
			if !ok {
				return id
			}
			id = next
		}
	}
	track := func(oldId, newId EntityId) {
		if newId == 0 {
			deletedEntities[oldId] = true
			return
		}
		if newId != oldId {
			moved[oldId] = newId
		}
	}

	for _, cmd := range c.deletes {
		storage.Delete(cmd)
		deletedEntities[cmd] = true
	}

	for _, cmd := range c.removes {
		id := resolve(cmd.entity)
		if !deletedEntities[id] {
			track(id, storage.RemoveComponent(id, cmd.compType))
		}
	}

	for _, cmd := range c.adds {
		id := resolve(cmd.entity)
		if !deletedEntities[id] {
			track(id, storage.AddComponent(id, cmd.component))
		}
	}

	for _, cmd := range c.spawns {
		storage.Spawn(cmd.components...)
	}

	for _, t := range c.singletonRemoves {
		storage.RemoveSingleton(t)
	}

	for _, value := range c.singletonInserts {
		storage.AddSingleton(value)
	}

	// Defers may queue further commands; run the ones present at flush start.
	defers := c.defers
	c.defers = nil

	c.spawns = c.spawns[:0]
	c.deletes = c.deletes[:0]
	c.adds = c.adds[:0]
	c.removes = c.removes[:0]
	c.singletonInserts = c.singletonInserts[:0]
	c.singletonRemoves = c.singletonRemoves[:0]

	for _, df := range defers {
		df.fn()
	}
}
