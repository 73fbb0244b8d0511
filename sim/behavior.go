package sim

import "github.com/plus3/drift/rng"

// Due reports whether the spawner may fire at elapsed time t. A spawner whose
// NextSpawnTime equals t waits for the next tick.
func (s *Spawner) Due(t float64) bool {
	return float64(s.NextSpawnTime) < t
}

// Reset schedules the next spawn SpawnRate after t. t is narrowed to single
// precision first.
func (s *Spawner) Reset(t float64) {
	s.NextSpawnTime = float32(t) + s.SpawnRate
}

// NewMovement rolls a fresh movement whose first redirect is due at t.
func NewMovement(r *rng.Random, t float64, settings Settings) Movement {
	return Movement{
		Direction:               r.NextDirection(settings.DirectionMin, settings.DirectionMax),
		Speed:                   r.NextFloatRange(settings.SpeedMin, settings.SpeedMax),
		NextDirectionChangeTime: t,
	}
}

// Step redirects the movement if its deadline has passed and then moves tr by
// Direction * Speed * dt. It reports whether a new direction was rolled.
func (m *Movement) Step(tr *Transform, t float64, dt float32, r *rng.Random, settings Settings) bool {
	redirected := false
	if t >= m.NextDirectionChangeTime {
		m.Direction = r.NextDirection(settings.DirectionMin, settings.DirectionMax)
		m.NextDirectionChangeTime = t + settings.RedirectInterval
		redirected = true
	}
	tr.Position = tr.Position.Add(m.Direction.Mul(m.Speed).Mul(dt))
	return redirected
}
