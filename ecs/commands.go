package ecs

import "reflect"

// Commands records structural changes during a tick so systems never mutate
// the archetype layout while queries are iterating it. Recorded operations
// are applied by Flush, which the Scheduler calls at every SyncPoint and at
// the end of each tick.
//
// Commands is not safe for concurrent use. Parallel work records through a
// ParallelWriter obtained from AsParallelWriter.
type Commands struct {
	creates  []createCommand
	deletes  []EntityId
	adds     []addComponentCommand
	removes  []removeComponentCommand
	defers   []func()
	parallel []*ParallelWriter
}

// NewCommands returns an empty buffer.
func NewCommands() *Commands {
	return &Commands{}
}

type createCommand struct {
	prefab     PrefabId
	fromPrefab bool
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

// Spawn queues creation of an entity with the given components.
func (c *Commands) Spawn(components ...any) {
	c.creates = append(c.creates, createCommand{components: components})
}

// Instantiate queues creation of an entity from a prefab. overrides follow
// Storage.Instantiate.
func (c *Commands) Instantiate(prefab PrefabId, overrides ...any) {
	c.creates = append(c.creates, createCommand{
		prefab:     prefab,
		fromPrefab: true,
		components: overrides,
	})
}

// Delete queues removal of an entity.
func (c *Commands) Delete(entity EntityId) {
	c.deletes = append(c.deletes, entity)
}

// AddComponent queues adding (or overwriting) a component.
func (c *Commands) AddComponent(entity EntityId, component any) {
	c.adds = append(c.adds, addComponentCommand{entity: entity, component: component})
}

// RemoveComponent queues removal of a component type.
func (c *Commands) RemoveComponent(entity EntityId, compType reflect.Type) {
	c.removes = append(c.removes, removeComponentCommand{entity: entity, compType: compType})
}

// Defer queues fn to run after all other operations of the flush, including
// those recorded through parallel writers.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, fn)
}

// Len returns the number of pending operations, including those recorded
// through parallel writers.
func (c *Commands) Len() int {
	n := len(c.creates) + len(c.deletes) + len(c.adds) + len(c.removes) + len(c.defers)
	for _, w := range c.parallel {
		for _, buf := range w.buffers {
			n += buf.Len()
		}
	}
	return n
}

// AsParallelWriter returns a writer with one private buffer per chunk. The
// buffers are applied in chunk order after this buffer's own operations, so
// the result of a flush does not depend on goroutine scheduling.
func (c *Commands) AsParallelWriter(chunks int) *ParallelWriter {
	w := &ParallelWriter{buffers: make([]*Commands, chunks)}
	for i := range w.buffers {
		w.buffers[i] = NewCommands()
	}
	c.parallel = append(c.parallel, w)
	return w
}

// Flush applies and clears every pending operation and returns how many were
// applied. Deletes run first; adds and removes skip entities deleted in the
// same flush. Parallel writer buffers follow in chunk order. Deferred
// functions, including those recorded through parallel writers, run last.
func (c *Commands) Flush(storage *Storage) int {
	var defers []func()
	applied := c.apply(storage, &defers)
	for _, fn := range defers {
		fn()
		applied++
	}
	return applied
}

// apply performs the structural operations of c and its parallel buffers and
// collects their deferred functions in recording order.
func (c *Commands) apply(storage *Storage, defers *[]func()) int {
	applied := 0

	deleted := make(map[EntityId]struct{}, len(c.deletes))
	for _, id := range c.deletes {
		storage.Delete(id)
		deleted[id] = struct{}{}
		applied++
	}

	for _, cmd := range c.removes {
		if _, gone := deleted[cmd.entity]; !gone {
			storage.RemoveComponent(cmd.entity, cmd.compType)
			applied++
		}
	}

	for _, cmd := range c.adds {
		if _, gone := deleted[cmd.entity]; !gone {
			storage.AddComponent(cmd.entity, cmd.component)
			applied++
		}
	}

	for _, cmd := range c.creates {
		if cmd.fromPrefab {
			storage.Instantiate(cmd.prefab, cmd.components...)
		} else {
			storage.Spawn(cmd.components...)
		}
		applied++
	}

	*defers = append(*defers, c.defers...)

	parallel := c.parallel
	c.creates = c.creates[:0]
	c.deletes = c.deletes[:0]
	c.adds = c.adds[:0]
	c.removes = c.removes[:0]
	c.defers = c.defers[:0]
	c.parallel = nil

	for _, w := range parallel {
		for _, buf := range w.buffers {
			applied += buf.apply(storage, defers)
		}
	}
	return applied
}

// ParallelWriter records commands from data-parallel work. Each chunk index
// owns a separate buffer, so concurrent callers never share state as long as
// no two goroutines use the same chunk index.
type ParallelWriter struct {
	buffers []*Commands
}

// Chunk returns the buffer owned by chunk index i.
func (w *ParallelWriter) Chunk(i int) *Commands {
	return w.buffers[i]
}

// Spawn records a spawn into chunk i's buffer.
func (w *ParallelWriter) Spawn(i int, components ...any) {
	w.buffers[i].Spawn(components...)
}

// Instantiate records a prefab instantiation into chunk i's buffer.
func (w *ParallelWriter) Instantiate(i int, prefab PrefabId, overrides ...any) {
	w.buffers[i].Instantiate(prefab, overrides...)
}

// Delete records a deletion into chunk i's buffer.
func (w *ParallelWriter) Delete(i int, entity EntityId) {
	w.buffers[i].Delete(entity)
}

// Defer records fn into chunk i's buffer.
func (w *ParallelWriter) Defer(i int, fn func()) {
	w.buffers[i].Defer(fn)
}
