package ecs

import (
	"iter"
	"reflect"
	"unsafe"
)

var entityIdType = reflect.TypeFor[EntityId]()

type viewField struct {
	typ      reflect.Type
	offset   uintptr
	optional bool
}

// View matches entities against a struct of component pointers.
//
//	type mover struct {
//		*Movement
//		*Transform
//		Tag *Tag `ecs:"optional"`
//	}
//
// Embedded pointer fields are required. Named pointer fields may be tagged
// `ecs:"optional"` and are nil when the entity lacks the component. A field
// of type EntityId receives the matched entity's ID.
type View[T any] struct {
	storage  *Storage
	fields   []viewField
	idOffset uintptr
	hasId    bool
}

// NewView builds a view over storage. It panics if T is not a struct of
// component pointers.
func NewView[T any](storage *Storage) *View[T] {
	structType := reflect.TypeFor[T]()
	if structType.Kind() != reflect.Struct {
		panic("View type parameter must be a struct")
	}

	v := &View[T]{storage: storage}
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if field.Type == entityIdType {
			v.idOffset = field.Offset
			v.hasId = true
			continue
		}
		if field.Type.Kind() != reflect.Ptr {
			panic("View struct fields must be pointer types")
		}

		optional := false
		if tag := field.Tag.Get("ecs"); tag != "" && !field.Anonymous {
			if tag != "optional" {
				panic("invalid ecs tag value: \"" + tag + "\" (only \"optional\" is supported)")
			}
			optional = true
		}

		v.fields = append(v.fields, viewField{
			typ:      field.Type.Elem(),
			offset:   field.Offset,
			optional: optional,
		})
	}
	return v
}

func (v *View[T]) matches(a *Archetype) bool {
	for _, f := range v.fields {
		if !f.optional && !a.HasComponent(f.typ) {
			return false
		}
	}
	return true
}

func (v *View[T]) columnsFor(a *Archetype) []int {
	cols := make([]int, len(v.fields))
	for i, f := range v.fields {
		cols[i] = a.column(f.typ)
	}
	return cols
}

// populate writes component pointers for slot index into *dst. It returns
// false when a required component is missing.
func (v *View[T]) populate(dst unsafe.Pointer, a *Archetype, index int, cols []int) bool {
	for i, f := range v.fields {
		fieldPtr := (*unsafe.Pointer)(unsafe.Add(dst, f.offset))

		var comp any
		if cols[i] >= 0 {
			comp = a.columns[cols[i]].Get(index)
		}
		if comp == nil {
			if !f.optional {
				return false
			}
			*fieldPtr = nil
			continue
		}
		*fieldPtr = (*eface)(unsafe.Pointer(&comp)).data
	}
	if v.hasId {
		*(*EntityId)(unsafe.Add(dst, v.idOffset)) = NewEntityId(a.id, uint32(index))
	}
	return true
}

// Fill populates *dst for one entity and reports whether it matched.
func (v *View[T]) Fill(id EntityId, dst *T) bool {
	a := v.storage.archetype(id.ArchetypeId())
	if a == nil {
		return false
	}
	return v.populate(unsafe.Pointer(dst), a, int(id.Index()), v.columnsFor(a))
}

// Get returns the view of one entity, or nil if it does not match.
func (v *View[T]) Get(id EntityId) *T {
	var result T
	if !v.Fill(id, &result) {
		return nil
	}
	return &result
}

func (v *View[T]) iterArchetype(a *Archetype, yield func(EntityId, T) bool) bool {
	if len(a.columns) == 0 {
		return true
	}
	cols := v.columnsFor(a)

	var result T
	dst := unsafe.Pointer(&result)
	for index := range a.columns[0].Iter() {
		if !v.populate(dst, a, index, cols) {
			continue
		}
		if !yield(NewEntityId(a.id, uint32(index)), result) {
			return false
		}
	}
	return true
}

// Iter yields every matching entity, archetypes in creation order and slots
// in ascending order.
func (v *View[T]) Iter() iter.Seq2[EntityId, T] {
	return func(yield func(EntityId, T) bool) {
		for _, a := range v.storage.Archetypes() {
			if v.matches(a) && !v.iterArchetype(a, yield) {
				return
			}
		}
	}
}

// Values is Iter without the IDs.
func (v *View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range v.Iter() {
			if !yield(item) {
				return
			}
		}
	}
}

// Count returns the number of matching entities.
func (v *View[T]) Count() int {
	n := 0
	for range v.Iter() {
		n++
	}
	return n
}
