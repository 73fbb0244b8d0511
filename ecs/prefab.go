package ecs

import (
	"reflect"
	"slices"

	"github.com/google/uuid"
)

// PrefabId names a registered prefab.
type PrefabId = uuid.UUID

// Prefab is a template: a list of component values copied into every
// instance.
type Prefab struct {
	Id         PrefabId
	Name       string
	components []any
	types      []reflect.Type
}

// Components returns the template's component values.
func (p *Prefab) Components() []any {
	return p.components
}

// RegisterPrefab stores a new template built from components and returns its ID.
func (s *Storage) RegisterPrefab(name string, components ...any) PrefabId {
	p := &Prefab{
		Id:         uuid.New(),
		Name:       name,
		components: make([]any, 0, len(components)),
		types:      componentTypes(components),
	}
	for _, comp := range components {
		v := reflect.ValueOf(comp)
		if v.Kind() == reflect.Ptr {
			v = v.Elem()
		}
		p.components = append(p.components, v.Interface())
	}
	s.prefabs[p.Id] = p
	return p.Id
}

// Prefab looks up a registered template.
func (s *Storage) Prefab(id PrefabId) (*Prefab, bool) {
	p, ok := s.prefabs[id]
	return p, ok
}

// Instantiate spawns a copy of the prefab. Each override replaces the
// template component of the same type or, if the template has none, is added
// to the new entity. Unknown prefabs panic.
func (s *Storage) Instantiate(id PrefabId, overrides ...any) EntityId {
	p, ok := s.prefabs[id]
	if !ok {
		panic("unknown prefab " + id.String())
	}

	components := slices.Clone(p.components)
	for _, override := range overrides {
		idx := slices.Index(p.types, componentType(override))
		if idx < 0 {
			components = append(components, override)
			continue
		}
		for i, comp := range components {
			if componentType(comp) == p.types[idx] {
				components[i] = override
				break
			}
		}
	}
	return s.Spawn(components...)
}
