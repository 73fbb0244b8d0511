package ecs

import (
	"reflect"
	"slices"
	"sort"
	"weak"

	"github.com/kamstrup/intmap"
)

// Storage owns every archetype, singleton and prefab of one world.
type Storage struct {
	registry   *ComponentRegistry
	archetypes *intmap.Map[uint32, *Archetype]
	order      []uint32
	singletons map[reflect.Type]*singletonEntry
	prefabs    map[PrefabId]*Prefab
}

// NewStorage creates an empty world over the given registry.
func NewStorage(registry *ComponentRegistry) *Storage {
	return &Storage{
		registry:   registry,
		archetypes: intmap.New[uint32, *Archetype](32),
		singletons: make(map[reflect.Type]*singletonEntry),
		prefabs:    make(map[PrefabId]*Prefab),
	}
}

// Registry returns the component registry backing this storage.
func (s *Storage) Registry() *ComponentRegistry {
	return s.registry
}

// Archetypes returns all archetypes in creation order.
func (s *Storage) Archetypes() []*Archetype {
	out := make([]*Archetype, 0, len(s.order))
	for _, id := range s.order {
		if a, ok := s.archetypes.Get(id); ok {
			out = append(out, a)
		}
	}
	return out
}

func (s *Storage) archetype(id uint32) *Archetype {
	a, _ := s.archetypes.Get(id)
	return a
}

func (s *Storage) archetypeFor(types []reflect.Type) *Archetype {
	id := archetypeHash(types)
	if a, ok := s.archetypes.Get(id); ok {
		return a
	}
	a := newArchetype(id, types, s.registry)
	s.archetypes.Put(id, a)
	s.order = append(s.order, id)
	return a
}

// GetArchetype returns the archetype for exactly the given component values' types, if any.
func (s *Storage) GetArchetype(components ...any) *Archetype {
	return s.archetype(archetypeHash(componentTypes(components)))
}

// Spawn creates an entity from the given components.
func (s *Storage) Spawn(components ...any) EntityId {
	if len(components) == 0 {
		panic("cannot spawn entity without components")
	}
	a := s.archetypeFor(componentTypes(components))
	return NewEntityId(a.id, a.spawn(components))
}

// Delete removes an entity. Unknown IDs are ignored.
func (s *Storage) Delete(id EntityId) {
	if a := s.archetype(id.ArchetypeId()); a != nil {
		a.delete(id.Index())
	}
}

// Alive reports whether id names a live entity.
func (s *Storage) Alive(id EntityId) bool {
	a := s.archetype(id.ArchetypeId())
	return a != nil && len(a.columns) > 0 && a.columns[0].Has(int(id.Index()))
}

// AddComponent moves the entity into the archetype that also carries
// component and returns its new ID. If the entity already has that type the
// value is overwritten in place.
func (s *Storage) AddComponent(id EntityId, component any) EntityId {
	old := s.archetype(id.ArchetypeId())
	if old == nil || !s.Alive(id) {
		return 0
	}

	compType := componentType(component)
	if col := old.column(compType); col >= 0 {
		old.columns[col].Set(int(id.Index()), component)
		return id
	}

	types := append(slices.Clone(old.types), compType)
	sort.Sort(byTypeName(types))
	return s.move(id, old, types, component)
}

// RemoveComponent moves the entity into the archetype without compType. An
// entity left with no components is deleted and 0 is returned.
func (s *Storage) RemoveComponent(id EntityId, compType reflect.Type) EntityId {
	old := s.archetype(id.ArchetypeId())
	if old == nil || !s.Alive(id) || !old.HasComponent(compType) {
		return id
	}

	types := slices.DeleteFunc(slices.Clone(old.types), func(t reflect.Type) bool { return t == compType })
	if len(types) == 0 {
		old.delete(id.Index())
		return 0
	}
	return s.move(id, old, types, nil)
}

func (s *Storage) move(id EntityId, old *Archetype, types []reflect.Type, extra any) EntityId {
	dst := s.archetypeFor(types)

	components := make([]any, 0, len(types))
	for _, typ := range types {
		if extra != nil && typ == componentType(extra) {
			components = append(components, extra)
			continue
		}
		components = append(components, old.GetComponent(id.Index(), typ))
	}

	newId := NewEntityId(dst.id, dst.spawn(components))
	old.moveRef(id, dst, newId)
	old.delete(id.Index())
	return newId
}

// GetComponent returns a pointer to the entity's component of compType, or nil.
func (s *Storage) GetComponent(id EntityId, compType reflect.Type) any {
	a := s.archetype(id.ArchetypeId())
	if a == nil {
		return nil
	}
	return a.GetComponent(id.Index(), compType)
}

// HasComponent reports whether the entity's archetype carries compType.
func (s *Storage) HasComponent(id EntityId, compType reflect.Type) bool {
	a := s.archetype(id.ArchetypeId())
	return a != nil && a.HasComponent(compType)
}

// Ref returns the stable reference for id, creating it on first use. The
// storage only holds it weakly.
func (s *Storage) Ref(id EntityId) *EntityRef {
	a := s.archetype(id.ArchetypeId())
	if a == nil || !s.Alive(id) {
		return nil
	}
	if ptr, ok := a.refs.Get(id); ok {
		if ref := ptr.Value(); ref != nil {
			return ref
		}
	}
	ref := &EntityRef{Id: id, Archetype: a}
	a.refs.Put(id, weak.Make(ref))
	return ref
}

// ComponentReader is anything that can look up components by entity.
type ComponentReader interface {
	GetComponent(EntityId, reflect.Type) any
}

// ReadComponent is the typed form of GetComponent. It returns nil when the
// entity lacks T.
func ReadComponent[T any](reader ComponentReader, id EntityId) *T {
	comp, _ := reader.GetComponent(id, reflect.TypeFor[T]()).(*T)
	return comp
}
