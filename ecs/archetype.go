package ecs

import (
	"reflect"
	"slices"
	"sort"
	"unsafe"
	"weak"

	"github.com/kamstrup/intmap"
)

type byTypeName []reflect.Type

func (a byTypeName) Len() int           { return len(a) }
func (a byTypeName) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byTypeName) Less(i, j int) bool { return a[i].String() < a[j].String() }

// Archetype holds every entity that has exactly one particular set of
// component types, one column per type.
type Archetype struct {
	id      uint32
	types   []reflect.Type
	columns []columnStorage
	refs    *intmap.Map[EntityId, weak.Pointer[EntityRef]]
}

func newArchetype(id uint32, types []reflect.Type, registry *ComponentRegistry) *Archetype {
	a := &Archetype{
		id:      id,
		types:   types,
		columns: make([]columnStorage, len(types)),
		refs:    intmap.New[EntityId, weak.Pointer[EntityRef]](64),
	}
	for i, typ := range types {
		a.columns[i] = registry.newColumn(typ)
	}
	return a
}

// ID returns the archetype's hash identifier.
func (a *Archetype) ID() uint32 {
	return a.id
}

// Types returns the component types, sorted by name.
func (a *Archetype) Types() []reflect.Type {
	return a.types
}

// Len returns the number of live entities.
func (a *Archetype) Len() int {
	if len(a.columns) == 0 {
		return 0
	}
	return a.columns[0].Len()
}

// HasComponent reports whether the archetype carries compType.
func (a *Archetype) HasComponent(compType reflect.Type) bool {
	return slices.Contains(a.types, compType)
}

func (a *Archetype) column(compType reflect.Type) int {
	return slices.Index(a.types, compType)
}

// spawn appends one entity. components must match a.types one-to-one.
func (a *Archetype) spawn(components []any) uint32 {
	index := -1
	for _, comp := range components {
		col := a.column(componentType(comp))
		if col < 0 {
			panic("component " + componentType(comp).String() + " does not belong to archetype")
		}
		pos := a.columns[col].Append(comp)
		if index >= 0 && pos != index {
			panic("archetype columns out of step")
		}
		index = pos
	}
	return uint32(index)
}

// GetComponent returns a pointer to the entity's compType value, or nil.
func (a *Archetype) GetComponent(entityIndex uint32, compType reflect.Type) any {
	col := a.column(compType)
	if col < 0 {
		return nil
	}
	return a.columns[col].Get(int(entityIndex))
}

func (a *Archetype) delete(entityIndex uint32) {
	id := NewEntityId(a.id, entityIndex)
	if ptr, ok := a.refs.Get(id); ok {
		if ref := ptr.Value(); ref != nil {
			ref.Id = 0
			ref.Archetype = nil
		}
		a.refs.Del(id)
	}
	for _, col := range a.columns {
		col.Delete(int(entityIndex))
	}
}

// moveRef transfers a live EntityRef from this archetype to dst under newId.
func (a *Archetype) moveRef(id EntityId, dst *Archetype, newId EntityId) {
	ptr, ok := a.refs.Get(id)
	if !ok {
		return
	}
	a.refs.Del(id)
	if ref := ptr.Value(); ref != nil {
		ref.Id = newId
		ref.Archetype = dst
		dst.refs.Put(newId, ptr)
	}
}

// Iter yields the IDs of all live entities in slot order.
func (a *Archetype) Iter() func(yield func(EntityId) bool) {
	return func(yield func(EntityId) bool) {
		if len(a.columns) == 0 {
			return
		}
		for index := range a.columns[0].Iter() {
			if !yield(NewEntityId(a.id, uint32(index))) {
				return
			}
		}
	}
}

// componentType returns the value type of a component, looking through pointers.
func componentType(comp any) reflect.Type {
	t := reflect.TypeOf(comp)
	if t == nil {
		panic("nil component")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// componentTypes returns the sorted component types of components.
func componentTypes(components []any) []reflect.Type {
	types := make([]reflect.Type, 0, len(components))
	for _, comp := range components {
		t := componentType(comp)
		switch t.Kind() {
		case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func:
			panic("components cannot be pointers, maps, channels, or functions")
		}
		if slices.Contains(types, t) {
			panic("duplicate component type " + t.String())
		}
		types = append(types, t)
	}
	sort.Sort(byTypeName(types))
	return types
}

// eface mirrors the runtime layout of an interface value.
type eface struct {
	typ  unsafe.Pointer
	data unsafe.Pointer
}

// archetypeHash is FNV-1a over the runtime type pointers of a sorted type set.
func archetypeHash(types []reflect.Type) uint32 {
	h := uint32(2166136261)
	for _, t := range types {
		ptr := uintptr((*eface)(unsafe.Pointer(&t)).data)
		v := uint32(ptr)
		if unsafe.Sizeof(ptr) == 8 {
			v ^= uint32(uint64(ptr) >> 32)
		}
		h ^= v
		h *= 16777619
	}
	return h
}
