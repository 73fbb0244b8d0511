package ecs

import (
	"iter"
	"reflect"
)

// ComponentRegistry knows how to build a column for every registered component
// type. Each Storage owns one, so independent worlds never share type tables.
type ComponentRegistry struct {
	columns map[reflect.Type]func() columnStorage
}

// NewComponentRegistry creates an empty registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		columns: make(map[reflect.Type]func() columnStorage),
	}
}

// RegisterComponent makes T usable as a component in storages built from r.
func RegisterComponent[T any](r *ComponentRegistry) {
	r.columns[reflect.TypeFor[T]()] = func() columnStorage {
		return &blockColumn[T]{}
	}
}

// Registered reports whether t has been registered.
func (r *ComponentRegistry) Registered(t reflect.Type) bool {
	_, ok := r.columns[t]
	return ok
}

func (r *ComponentRegistry) newColumn(t reflect.Type) columnStorage {
	factory := r.columns[t]
	if factory == nil {
		panic("component type " + t.String() + " not registered")
	}
	return factory()
}

// BlockSize is the number of component slots per storage block. Blocks never
// move once allocated, so pointers into a block stay valid until the slot is
// deleted.
const BlockSize = 64

// blockColumn stores values of T in fixed-size blocks with a free list.
type blockColumn[T any] struct {
	blocks []*[BlockSize]T
	filled []*[BlockSize]bool
	free   []int
	next   int
	live   int
}

func asValue[T any](item any) (T, bool) {
	switch v := item.(type) {
	case T:
		return v, true
	case *T:
		if v != nil {
			return *v, true
		}
	}
	var zero T
	return zero, false
}

func (c *blockColumn[T]) slot(index int) (block, offset int, ok bool) {
	if index < 0 {
		return 0, 0, false
	}
	block, offset = index/BlockSize, index%BlockSize
	return block, offset, block < len(c.blocks)
}

// Append stores item and returns its slot, reusing freed slots first.
func (c *blockColumn[T]) Append(item any) int {
	value, ok := asValue[T](item)
	if !ok {
		return -1
	}

	var index int
	if n := len(c.free); n > 0 {
		index = c.free[n-1]
		c.free = c.free[:n-1]
	} else {
		index = c.next
		c.next++
		if index/BlockSize >= len(c.blocks) {
			c.blocks = append(c.blocks, new([BlockSize]T))
			c.filled = append(c.filled, new([BlockSize]bool))
		}
	}

	block, offset := index/BlockSize, index%BlockSize
	c.blocks[block][offset] = value
	c.filled[block][offset] = true
	c.live++
	return index
}

// Set overwrites an occupied slot.
func (c *blockColumn[T]) Set(index int, item any) bool {
	block, offset, ok := c.slot(index)
	if !ok || !c.filled[block][offset] {
		return false
	}
	value, ok := asValue[T](item)
	if !ok {
		return false
	}
	c.blocks[block][offset] = value
	return true
}

// Get returns a *T for an occupied slot, or nil.
func (c *blockColumn[T]) Get(index int) any {
	block, offset, ok := c.slot(index)
	if !ok || !c.filled[block][offset] {
		return nil
	}
	return &c.blocks[block][offset]
}

func (c *blockColumn[T]) Delete(index int) {
	block, offset, ok := c.slot(index)
	if !ok || !c.filled[block][offset] {
		return
	}
	var zero T
	c.blocks[block][offset] = zero
	c.filled[block][offset] = false
	c.free = append(c.free, index)
	c.live--
}

func (c *blockColumn[T]) Has(index int) bool {
	block, offset, ok := c.slot(index)
	return ok && c.filled[block][offset]
}

// Len is the number of occupied slots.
func (c *blockColumn[T]) Len() int {
	return c.live
}

// Iter yields occupied slot indices in ascending order.
func (c *blockColumn[T]) Iter() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := 0; i < c.next; i++ {
			if c.filled[i/BlockSize][i%BlockSize] && !yield(i) {
				return
			}
		}
	}
}
