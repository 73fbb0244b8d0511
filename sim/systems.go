package sim

import (
	"github.com/plus3/drift/ecs"
	"github.com/plus3/drift/rng"
	"go.uber.org/zap"
)

// Stream salts keep the spawner's and the mover's per-chunk streams apart
// while both derive from the same tick source.
const (
	spawnerSalt  uint32 = 1
	movementSalt uint32 = 2
)

// RandomSystem seeds the tick's shared random source from the clock. It must
// run before the systems that read TickRandom.
type RandomSystem struct {
	Random ecs.Singleton[TickRandom]
}

func (s *RandomSystem) Execute(frame *ecs.UpdateFrame) {
	tickRandom(frame, &s.Random)
}

func tickRandom(frame *ecs.UpdateFrame, single *ecs.Singleton[TickRandom]) *rng.Source {
	tr := single.Get()
	if tr == nil {
		frame.Storage.AddSingleton(TickRandom{})
		tr = single.Get()
	}
	if tr.Source == nil || tr.Tick != frame.Tick {
		tr.Tick = frame.Tick
		tr.Source = rng.NewSource(rng.TickSeed(frame.ElapsedTime))
	}
	return tr.Source
}

func settingsOf(single *ecs.Singleton[Settings]) Settings {
	if s := single.Get(); s != nil {
		return *s
	}
	return DefaultSettings()
}

func countersOf(frame *ecs.UpdateFrame, single *ecs.Singleton[Counters]) *Counters {
	if c := single.Get(); c != nil {
		return c
	}
	frame.Storage.AddSingleton(Counters{})
	return single.Get()
}

func named(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Named(name)
}

type spawnerItem = struct {
	ecs.EntityId
	*Spawner
}

// SpawnerSystem fires every due spawner: it records an instantiation of the
// spawner's prefab at the spawn position with a freshly rolled Movement, and
// pushes NextSpawnTime forward. Instances appear when the command buffer is
// next flushed.
type SpawnerSystem struct {
	Spawners ecs.Query[spawnerItem]
	Random   ecs.Singleton[TickRandom]
	Settings ecs.Singleton[Settings]
	Counters ecs.Singleton[Counters]

	logger *zap.Logger
}

// NewSpawnerSystem returns a spawner system logging to logger.
func NewSpawnerSystem(logger *zap.Logger) *SpawnerSystem {
	return &SpawnerSystem{logger: named(logger, "spawner")}
}

func (s *SpawnerSystem) Execute(frame *ecs.UpdateFrame) {
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	source := tickRandom(frame, &s.Random)
	settings := settingsOf(&s.Settings)
	t := frame.ElapsedTime

	chunks := s.Spawners.ChunkCount(frame.ChunkSize)
	if chunks == 0 {
		return
	}
	writer := frame.Commands.AsParallelWriter(chunks)
	fired := make([]int, chunks)

	err := ecs.ParallelFor(&s.Spawners, frame.Workers, frame.ChunkSize, func(chunk ecs.Chunk[spawnerItem]) error {
		r := source.Stream(spawnerSalt, chunk.Index)
		for _, item := range chunk.Items {
			sp := item.Spawner
			if !sp.Due(t) {
				continue
			}
			writer.Instantiate(chunk.Index, sp.Prefab,
				Transform{Position: sp.SpawnPosition},
				NewMovement(&r, t, settings),
				Spawned{Source: item.EntityId, Tick: frame.Tick},
			)
			sp.Reset(t)
			fired[chunk.Index]++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("spawner update failed", zap.Error(err))
		return
	}

	total := 0
	for _, n := range fired {
		total += n
	}
	if total == 0 {
		return
	}
	countersOf(frame, &s.Counters).Spawned += uint64(total)
	s.logger.Debug("spawns requested",
		zap.Uint64("tick", frame.Tick),
		zap.Float64("elapsed", t),
		zap.Int("count", total))
}

type moverItem = struct {
	*Movement
	*Transform
}

// MovementSystem re-rolls directions whose deadline has passed and
// integrates every mover's position.
type MovementSystem struct {
	Movers   ecs.Query[moverItem]
	Random   ecs.Singleton[TickRandom]
	Settings ecs.Singleton[Settings]
	Counters ecs.Singleton[Counters]

	logger *zap.Logger
}

// NewMovementSystem returns a movement system logging to logger.
func NewMovementSystem(logger *zap.Logger) *MovementSystem {
	return &MovementSystem{logger: named(logger, "movement")}
}

func (s *MovementSystem) Execute(frame *ecs.UpdateFrame) {
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	source := tickRandom(frame, &s.Random)
	settings := settingsOf(&s.Settings)
	t, dt := frame.ElapsedTime, frame.DeltaTime

	chunks := s.Movers.ChunkCount(frame.ChunkSize)
	if chunks == 0 {
		return
	}
	redirected := make([]int, chunks)

	err := ecs.ParallelFor(&s.Movers, frame.Workers, frame.ChunkSize, func(chunk ecs.Chunk[moverItem]) error {
		r := source.Stream(movementSalt, chunk.Index)
		for _, item := range chunk.Items {
			if item.Movement.Step(item.Transform, t, dt, &r, settings) {
				redirected[chunk.Index]++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("movement update failed", zap.Error(err))
		return
	}

	total := 0
	for _, n := range redirected {
		total += n
	}
	countersOf(frame, &s.Counters).Redirected += uint64(total)
	s.logger.Debug("movers updated",
		zap.Uint64("tick", frame.Tick),
		zap.Int("movers", s.Movers.Len()),
		zap.Int("redirected", total))
}
