package ecs

import (
	"iter"
	"unsafe"
)

// Query is a View that snapshots its matches once per system run. The
// Scheduler calls Execute on every Query field right before the owning
// system runs, so a system always sees the entities that exist at that point
// of the tick.
type Query[T any] struct {
	view           *View[T]
	storage        *Storage
	archetypes     []*Archetype
	archetypeCount int

	entities []EntityId
	items    []T
	valid    bool
}

// NewQuery creates a query over storage.
func NewQuery[T any](storage *Storage) *Query[T] {
	q := &Query[T]{}
	q.Init(storage)
	return q
}

// Init (re)binds the query to storage.
func (q *Query[T]) Init(storage *Storage) {
	q.view = NewView[T](storage)
	q.storage = storage
	q.archetypes = nil
	q.archetypeCount = -1
	q.valid = false
}

// Execute rebuilds the snapshot.
func (q *Query[T]) Execute() {
	if n := len(q.storage.order); n != q.archetypeCount {
		q.archetypes = q.archetypes[:0]
		for _, a := range q.storage.Archetypes() {
			if q.view.matches(a) {
				q.archetypes = append(q.archetypes, a)
			}
		}
		q.archetypeCount = n
	}

	q.entities = q.entities[:0]
	q.items = q.items[:0]
	for _, a := range q.archetypes {
		if len(a.columns) == 0 {
			continue
		}
		cols := q.view.columnsFor(a)

		var result T
		dst := unsafe.Pointer(&result)
		for index := range a.columns[0].Iter() {
			if !q.view.populate(dst, a, index, cols) {
				continue
			}
			q.entities = append(q.entities, NewEntityId(a.id, uint32(index)))
			q.items = append(q.items, result)
		}
	}
	q.valid = true
}

func (q *Query[T]) mustBeValid() {
	if !q.valid {
		panic("Query used before Query.Execute()")
	}
}

// Len returns the number of entities in the snapshot.
func (q *Query[T]) Len() int {
	q.mustBeValid()
	return len(q.items)
}

// Iter yields the snapshot. It panics if Execute has not run.
func (q *Query[T]) Iter() iter.Seq2[EntityId, T] {
	q.mustBeValid()
	return func(yield func(EntityId, T) bool) {
		for i := range q.items {
			if !yield(q.entities[i], q.items[i]) {
				return
			}
		}
	}
}

// Values yields the snapshot without IDs.
func (q *Query[T]) Values() iter.Seq[T] {
	q.mustBeValid()
	return func(yield func(T) bool) {
		for _, item := range q.items {
			if !yield(item) {
				return
			}
		}
	}
}

// Chunk is a contiguous run of a query snapshot. Index is the chunk's
// position within the query and is stable for a given snapshot and size.
type Chunk[T any] struct {
	Index    int
	Entities []EntityId
	Items    []T
}

// ChunkCount returns how many chunks of the given size cover the snapshot.
func (q *Query[T]) ChunkCount(size int) int {
	q.mustBeValid()
	if size <= 0 {
		size = DefaultChunkSize
	}
	return (len(q.items) + size - 1) / size
}

// Chunks splits the snapshot into runs of at most size entities.
func (q *Query[T]) Chunks(size int) iter.Seq[Chunk[T]] {
	q.mustBeValid()
	if size <= 0 {
		size = DefaultChunkSize
	}
	return func(yield func(Chunk[T]) bool) {
		for i, start := 0, 0; start < len(q.items); i, start = i+1, start+size {
			end := min(start+size, len(q.items))
			chunk := Chunk[T]{
				Index:    i,
				Entities: q.entities[start:end:end],
				Items:    q.items[start:end:end],
			}
			if !yield(chunk) {
				return
			}
		}
	}
}
