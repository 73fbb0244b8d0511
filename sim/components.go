package sim

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/drift/ecs"
	"github.com/plus3/drift/rng"
)

// Spawner periodically instantiates Prefab at SpawnPosition. NextSpawnTime
// is kept in single precision, like the rest of the spawner's data, so it
// loses precision relative to the double-precision clock as time grows.
type Spawner struct {
	SpawnPosition mgl32.Vec3
	SpawnRate     float32
	Prefab        ecs.PrefabId
	NextSpawnTime float32
}

// Movement drives a wandering entity. Direction is always unit length.
type Movement struct {
	Direction               mgl32.Vec3
	Speed                   float32
	NextDirectionChangeTime float64
}

// Transform is the entity's position in the world.
type Transform struct {
	Position mgl32.Vec3
}

// Kind names the prefab an entity was made from.
type Kind struct {
	Name string
}

// Spawned records which spawner created an entity and on which tick the
// request was recorded.
type Spawned struct {
	Source ecs.EntityId
	Tick   uint64
}

// Settings tunes the random movement. DefaultSettings reproduces the
// reference behavior.
type Settings struct {
	SpeedMin         float32
	SpeedMax         float32
	DirectionMin     float32
	DirectionMax     float32
	RedirectInterval float64
}

// DefaultSettings: speed in [1, 5), cube [-1, 1) for directions, a new
// direction every simulated second.
func DefaultSettings() Settings {
	return Settings{
		SpeedMin:         1,
		SpeedMax:         5,
		DirectionMin:     -1,
		DirectionMax:     1,
		RedirectInterval: 1.0,
	}
}

// Counters accumulates totals across ticks.
type Counters struct {
	Spawned    uint64
	Redirected uint64
}

// TickRandom is the random source shared by every system in the current
// tick.
type TickRandom struct {
	Tick   uint64
	Source *rng.Source
}

// RegisterComponents adds every sim component type to registry.
func RegisterComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Spawner](registry)
	ecs.RegisterComponent[Movement](registry)
	ecs.RegisterComponent[Transform](registry)
	ecs.RegisterComponent[Kind](registry)
	ecs.RegisterComponent[Spawned](registry)
}
