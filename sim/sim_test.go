package sim_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/plus3/drift/config"
	"github.com/plus3/drift/ecs"
	"github.com/plus3/drift/rng"
	"github.com/plus3/drift/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const unitTolerance = 1e-5

type mover = struct {
	ecs.EntityId
	*sim.Movement
	*sim.Transform
	Spawned *sim.Spawned `ecs:"optional"`
}

func newWorld(t *testing.T, syncPoint bool) (*ecs.Storage, *ecs.Scheduler, ecs.PrefabId) {
	t.Helper()
	storage := sim.NewStorage(sim.DefaultSettings())
	prefab := storage.RegisterPrefab("mover", sim.Transform{}, sim.Kind{Name: "mover"})

	scheduler := ecs.NewScheduler(storage, ecs.WithLogger(zaptest.NewLogger(t)))
	sim.RegisterSystems(scheduler, zaptest.NewLogger(t), syncPoint)
	return storage, scheduler, prefab
}

func movers(storage *ecs.Storage) []mover {
	var out []mover
	for item := range ecs.NewView[mover](storage).Values() {
		out = append(out, item)
	}
	return out
}

func TestSpawnerFiresWhenDue(t *testing.T) {
	storage, scheduler, prefab := newWorld(t, false)
	spawner := storage.Spawn(sim.Spawner{
		SpawnPosition: mgl32.Vec3{},
		SpawnRate:     2.0,
		Prefab:        prefab,
		NextSpawnTime: 0.0,
	})

	scheduler.Advance(2.5, 0.1)

	sp := ecs.ReadComponent[sim.Spawner](storage, spawner)
	assert.Equal(t, float32(4.5), sp.NextSpawnTime)

	got := movers(storage)
	require.Len(t, got, 1)
	m := got[0]
	assert.Equal(t, mgl32.Vec3{}, m.Transform.Position, "not moved in its spawn tick")
	assert.GreaterOrEqual(t, m.Movement.Speed, float32(1))
	assert.Less(t, m.Movement.Speed, float32(5))
	assert.InDelta(t, 1.0, m.Movement.Direction.Len(), unitTolerance)
	assert.Equal(t, 2.5, m.Movement.NextDirectionChangeTime)

	require.NotNil(t, m.Spawned)
	assert.Equal(t, spawner, m.Spawned.Source)
	assert.Equal(t, uint64(1), m.Spawned.Tick)

	kind := ecs.ReadComponent[sim.Kind](storage, m.EntityId)
	require.NotNil(t, kind)
	assert.Equal(t, "mover", kind.Name)
}

func TestSpawnerNotDue(t *testing.T) {
	tests := []struct {
		name    string
		next    float32
		elapsed float64
	}{
		{"future", 5.0, 3.0},
		{"exactly now", 3.0, 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, scheduler, prefab := newWorld(t, false)
			spawner := storage.Spawn(sim.Spawner{SpawnRate: 1, Prefab: prefab, NextSpawnTime: tt.next})

			scheduler.Advance(tt.elapsed, 0.1)

			assert.Equal(t, tt.next, ecs.ReadComponent[sim.Spawner](storage, spawner).NextSpawnTime)
			assert.Empty(t, movers(storage))
		})
	}
}

func TestSpawnerResetUsesNarrowedClock(t *testing.T) {
	storage, scheduler, prefab := newWorld(t, false)
	spawner := storage.Spawn(sim.Spawner{SpawnRate: 0.25, Prefab: prefab})

	elapsed := 100000.123456789
	scheduler.Advance(elapsed, 0.016)

	want := float32(elapsed) + 0.25
	assert.Equal(t, want, ecs.ReadComponent[sim.Spawner](storage, spawner).NextSpawnTime)
}

func TestSpawnersDueTogetherAllFire(t *testing.T) {
	storage, scheduler, prefab := newWorld(t, false)
	for i := range 150 {
		storage.Spawn(sim.Spawner{
			SpawnPosition: mgl32.Vec3{float32(i), 0, 0},
			SpawnRate:     1,
			Prefab:        prefab,
		})
	}

	scheduler.Advance(1.0, 0.016)

	got := movers(storage)
	require.Len(t, got, 150)
	xs := map[float32]bool{}
	for _, m := range got {
		xs[m.Transform.Position.X()] = true
	}
	assert.Len(t, xs, 150)

	counters := ecs.NewSingleton[sim.Counters](storage).Get()
	assert.Equal(t, uint64(150), counters.Spawned)
}

func TestSpawnerRepeats(t *testing.T) {
	storage, scheduler, prefab := newWorld(t, false)
	spawner := storage.Spawn(sim.Spawner{SpawnRate: 2, Prefab: prefab})

	for i := 1; i <= 10; i++ {
		scheduler.Advance(float64(i)*0.5, 0.5)
	}

	// Fires at 0.5 and 3.0. At 2.5 and 5.0 NextSpawnTime equals the clock and waits.
	sp := ecs.ReadComponent[sim.Spawner](storage, spawner)
	assert.Len(t, movers(storage), 2)
	assert.Equal(t, float32(5.0), sp.NextSpawnTime)
}

func TestMovementKeepsDirectionBeforeDeadline(t *testing.T) {
	storage, scheduler, _ := newWorld(t, false)
	id := storage.Spawn(
		sim.Movement{Direction: mgl32.Vec3{1, 0, 0}, Speed: 2.0, NextDirectionChangeTime: 5.0},
		sim.Transform{},
	)

	scheduler.Advance(3.0, 0.1)

	m := ecs.ReadComponent[sim.Movement](storage, id)
	tr := ecs.ReadComponent[sim.Transform](storage, id)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, m.Direction)
	assert.Equal(t, 5.0, m.NextDirectionChangeTime)
	assert.True(t, tr.Position.ApproxEqualThreshold(mgl32.Vec3{0.2, 0, 0}, 1e-6), "got %v", tr.Position)
}

func TestMovementRedirectsAtDeadline(t *testing.T) {
	storage, scheduler, _ := newWorld(t, false)
	id := storage.Spawn(
		sim.Movement{Direction: mgl32.Vec3{1, 0, 0}, Speed: 2.0, NextDirectionChangeTime: 5.0},
		sim.Transform{},
	)

	scheduler.Advance(5.0, 0.1)

	m := ecs.ReadComponent[sim.Movement](storage, id)
	tr := ecs.ReadComponent[sim.Transform](storage, id)
	assert.Equal(t, 6.0, m.NextDirectionChangeTime)
	assert.InDelta(t, 1.0, m.Direction.Len(), unitTolerance)
	assert.NotEqual(t, mgl32.Vec3{1, 0, 0}, m.Direction)

	want := m.Direction.Mul(2.0).Mul(0.1)
	assert.True(t, tr.Position.ApproxEqualThreshold(want, 1e-6), "moved with the new direction: got %v want %v", tr.Position, want)

	counters := ecs.NewSingleton[sim.Counters](storage).Get()
	assert.Equal(t, uint64(1), counters.Redirected)
}

func TestMovementNegativeSpeedMovesBackward(t *testing.T) {
	storage, scheduler, _ := newWorld(t, false)
	id := storage.Spawn(
		sim.Movement{Direction: mgl32.Vec3{0, 1, 0}, Speed: -1, NextDirectionChangeTime: 10},
		sim.Transform{},
	)

	scheduler.Advance(1, 0.5)

	assert.InDelta(t, -0.5, ecs.ReadComponent[sim.Transform](storage, id).Position.Y(), 1e-6)
}

func TestDirectionStaysUnitOverManyTicks(t *testing.T) {
	storage, scheduler, prefab := newWorld(t, false)
	for i := range 20 {
		storage.Spawn(sim.Spawner{SpawnRate: 0.3, Prefab: prefab, NextSpawnTime: float32(i) * 0.05})
	}

	elapsed := 0.0
	for range 200 {
		elapsed += 0.05
		scheduler.Advance(elapsed, 0.05)
		for _, m := range movers(storage) {
			require.InDelta(t, 1.0, m.Movement.Direction.Len(), unitTolerance)
		}
	}
	assert.NotEmpty(t, movers(storage))
}

func TestNextDirectionChangeTimeNeverDecreases(t *testing.T) {
	storage, scheduler, _ := newWorld(t, false)
	id := storage.Spawn(sim.Movement{Direction: mgl32.Vec3{0, 0, 1}, Speed: 1}, sim.Transform{})

	last := 0.0
	elapsed := 0.0
	for range 100 {
		elapsed += 0.07
		scheduler.Advance(elapsed, 0.07)
		next := ecs.ReadComponent[sim.Movement](storage, id).NextDirectionChangeTime
		require.GreaterOrEqual(t, next, last)
		last = next
	}
}

func TestSpawnedEntityVisibility(t *testing.T) {
	t.Run("end of tick", func(t *testing.T) {
		storage, scheduler, prefab := newWorld(t, false)
		storage.Spawn(sim.Spawner{SpawnPosition: mgl32.Vec3{0, 3, 0}, SpawnRate: 10, Prefab: prefab})

		scheduler.Advance(1.0, 0.1)
		got := movers(storage)
		require.Len(t, got, 1)
		assert.Equal(t, mgl32.Vec3{0, 3, 0}, got[0].Transform.Position)
		assert.Equal(t, 1.0, got[0].Movement.NextDirectionChangeTime)

		scheduler.Advance(1.1, 0.1)
		got = movers(storage)
		require.Len(t, got, 1)
		assert.NotEqual(t, mgl32.Vec3{0, 3, 0}, got[0].Transform.Position)
		assert.Equal(t, 2.1, got[0].Movement.NextDirectionChangeTime)
	})

	t.Run("sync point", func(t *testing.T) {
		storage, scheduler, prefab := newWorld(t, true)
		storage.Spawn(sim.Spawner{SpawnPosition: mgl32.Vec3{0, 3, 0}, SpawnRate: 10, Prefab: prefab})

		scheduler.Advance(1.0, 0.1)
		got := movers(storage)
		require.Len(t, got, 1)
		assert.NotEqual(t, mgl32.Vec3{0, 3, 0}, got[0].Transform.Position)
		assert.Equal(t, 2.0, got[0].Movement.NextDirectionChangeTime)
	})
}

func TestNewMovementRanges(t *testing.T) {
	r := rng.New(rng.TickSeed(2.5))
	settings := sim.DefaultSettings()
	for range 1000 {
		m := sim.NewMovement(&r, 2.5, settings)
		require.InDelta(t, 1.0, m.Direction.Len(), unitTolerance)
		require.GreaterOrEqual(t, m.Speed, float32(1))
		require.Less(t, m.Speed, float32(5))
		require.Equal(t, 2.5, m.NextDirectionChangeTime)
	}
}

func TestSimulationReproducibleAcrossWorkerCounts(t *testing.T) {
	scene := &config.Scene{
		Tick:      16_000_000,
		ChunkSize: 8,
		Movement:  config.Default().Movement,
		Prefabs:   []config.Prefab{{Name: "mover"}},
		Spawners: []config.Spawner{
			{Name: "a", Rate: 0.1, Prefab: "mover", Count: 40},
			{Name: "b", Position: [3]float32{5, 5, 5}, Rate: 0.37, Prefab: "mover", Count: 25},
		},
	}
	require.NoError(t, scene.Validate())

	run := func(workers int) []mgl32.Vec3 {
		s := *scene
		s.Workers = workers
		world, err := sim.NewWorld(&s, zaptest.NewLogger(t))
		require.NoError(t, err)

		elapsed := 0.0
		for range 60 {
			elapsed += 1.0 / 60
			world.Scheduler.Advance(elapsed, 1.0/60)
		}

		var positions []mgl32.Vec3
		for _, m := range movers(world.Storage) {
			positions = append(positions, m.Transform.Position)
		}
		return positions
	}

	serial := run(1)
	parallel := run(8)
	require.NotEmpty(t, serial)
	assert.Equal(t, serial, parallel)
}
