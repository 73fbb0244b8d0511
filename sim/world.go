package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/drift/config"
	"github.com/plus3/drift/ecs"
	"go.uber.org/zap"
)

// World bundles a populated storage with a scheduler that runs the
// simulation systems in order.
type World struct {
	Storage   *ecs.Storage
	Scheduler *ecs.Scheduler
	Prefabs   map[string]ecs.PrefabId

	counters *ecs.Singleton[Counters]
	movers   *ecs.View[moverItem]
}

// NewStorage returns an empty storage with every sim component registered
// and the Settings and Counters singletons installed.
func NewStorage(settings Settings) *ecs.Storage {
	registry := ecs.NewComponentRegistry()
	RegisterComponents(registry)

	storage := ecs.NewStorage(registry)
	storage.AddSingleton(settings)
	storage.AddSingleton(Counters{})
	return storage
}

// RegisterSystems adds the tick's systems to scheduler: random seeding,
// spawners, an optional sync point, then movement. Without the sync point,
// entities spawned in a tick are first moved on the following tick.
func RegisterSystems(scheduler *ecs.Scheduler, logger *zap.Logger, syncPoint bool) {
	scheduler.Register(&RandomSystem{})
	scheduler.Register(NewSpawnerSystem(logger))
	if syncPoint {
		scheduler.Register(ecs.SyncPoint{})
	}
	scheduler.Register(NewMovementSystem(logger))
}

// SettingsFromConfig converts scene movement settings.
func SettingsFromConfig(m config.Movement) Settings {
	return Settings{
		SpeedMin:         m.SpeedMin,
		SpeedMax:         m.SpeedMax,
		DirectionMin:     m.DirectionMin,
		DirectionMax:     m.DirectionMax,
		RedirectInterval: m.RedirectInterval,
	}
}

// NewWorld builds a world from a validated scene.
func NewWorld(scene *config.Scene, logger *zap.Logger) (*World, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	storage := NewStorage(SettingsFromConfig(scene.Movement))
	prefabs, err := LoadScene(storage, scene)
	if err != nil {
		return nil, err
	}

	scheduler := ecs.NewScheduler(storage,
		ecs.WithLogger(logger.Named("scheduler")),
		ecs.WithWorkers(scene.Workers),
		ecs.WithChunkSize(scene.ChunkSize),
	)
	RegisterSystems(scheduler, logger, scene.SyncPoint)

	logger.Info("world ready",
		zap.Int("prefabs", len(prefabs)),
		zap.Int("spawners", ecs.NewView[struct{ *Spawner }](storage).Count()),
		zap.Bool("sync_point", scene.SyncPoint))

	return &World{
		Storage:   storage,
		Scheduler: scheduler,
		Prefabs:   prefabs,
		counters:  ecs.NewSingleton[Counters](storage),
		movers:    ecs.NewView[moverItem](storage),
	}, nil
}

// LoadScene registers the scene's prefabs and spawns its spawners. It
// returns the prefab IDs by name.
func LoadScene(storage *ecs.Storage, scene *config.Scene) (map[string]ecs.PrefabId, error) {
	prefabs := make(map[string]ecs.PrefabId, len(scene.Prefabs))
	for _, p := range scene.Prefabs {
		prefabs[p.Name] = storage.RegisterPrefab(p.Name, Transform{}, Kind{Name: p.Name})
	}

	for i, sp := range scene.Spawners {
		prefab, ok := prefabs[sp.Prefab]
		if !ok {
			return nil, fmt.Errorf("spawner %d (%s): %w %q", i, sp.Name, config.ErrUnknownPrefab, sp.Prefab)
		}
		count := max(sp.Count, 1)
		for range count {
			storage.Spawn(Spawner{
				SpawnPosition: mgl32.Vec3(sp.Position),
				SpawnRate:     sp.Rate,
				Prefab:        prefab,
				NextSpawnTime: sp.FirstSpawn,
			})
		}
	}
	return prefabs, nil
}

// Counters returns the running totals.
func (w *World) Counters() Counters {
	return *w.counters.Get()
}

// Movers returns the number of live moving entities.
func (w *World) Movers() int {
	return w.movers.Count()
}
