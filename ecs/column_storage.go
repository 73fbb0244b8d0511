package ecs

import "iter"

// columnStorage is a type-erased column of one component type inside an archetype.
type columnStorage interface {
	Append(item any) int
	Set(index int, item any) bool
	Delete(index int)
	Get(index int) any
	Has(index int) bool
	Len() int
	Iter() iter.Seq[int]
}
