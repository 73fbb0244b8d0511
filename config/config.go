// Package config loads simulation scenes from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoSpawners        = errors.New("scene has no spawners")
	ErrInvalidRate       = errors.New("spawn rate must not be negative")
	ErrUnknownPrefab     = errors.New("unknown prefab")
	ErrDuplicatePrefab   = errors.New("duplicate prefab name")
	ErrInvalidSpeedRange = errors.New("invalid speed range")
	ErrInvalidDirection  = errors.New("invalid direction range")
	ErrInvalidInterval   = errors.New("redirect interval must be positive")
	ErrInvalidTick       = errors.New("tick interval must be positive")
	ErrNotFinite         = errors.New("value must be finite")
)

// Direction bounds must keep cube samples representable: squared components
// neither underflow to zero nor overflow in single precision.
const (
	minDirectionExtent = 1e-6
	maxDirectionExtent = 1e6
)

// Scene is the top-level scene file.
type Scene struct {
	Tick      time.Duration `yaml:"tick"`
	Workers   int           `yaml:"workers"`
	ChunkSize int           `yaml:"chunk_size"`
	SyncPoint bool          `yaml:"sync_point"`
	Movement  Movement      `yaml:"movement"`
	Prefabs   []Prefab      `yaml:"prefabs"`
	Spawners  []Spawner     `yaml:"spawners"`
}

// Movement tunes the random movement of spawned entities.
type Movement struct {
	SpeedMin         float32 `yaml:"speed_min"`
	SpeedMax         float32 `yaml:"speed_max"`
	DirectionMin     float32 `yaml:"direction_min"`
	DirectionMax     float32 `yaml:"direction_max"`
	RedirectInterval float64 `yaml:"redirect_interval"`
}

// Prefab declares a template that spawners can refer to by name.
type Prefab struct {
	Name string `yaml:"name"`
}

// Spawner declares one spawner, or Count identical ones.
type Spawner struct {
	Name       string     `yaml:"name"`
	Position   [3]float32 `yaml:"position"`
	Rate       float32    `yaml:"rate"`
	Prefab     string     `yaml:"prefab"`
	FirstSpawn float32    `yaml:"first_spawn"`
	Count      int        `yaml:"count"`
}

// Default returns a scene with the reference movement settings and no
// spawners.
func Default() *Scene {
	return &Scene{
		Tick:      16 * time.Millisecond,
		ChunkSize: 64,
		Movement: Movement{
			SpeedMin:         1,
			SpeedMax:         5,
			DirectionMin:     -1,
			DirectionMax:     1,
			RedirectInterval: 1.0,
		},
	}
}

// Load reads and validates a scene file.
func Load(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene: %w", err)
	}
	defer f.Close()

	scene, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load scene %s: %w", path, err)
	}
	return scene, nil
}

// Decode parses YAML over Default and validates the result.
func Decode(r io.Reader) (*Scene, error) {
	scene := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(scene); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	if err := scene.Validate(); err != nil {
		return nil, err
	}
	return scene, nil
}

// Validate checks the scene for values the simulation cannot run with.
func (s *Scene) Validate() error {
	if s.Tick <= 0 {
		return ErrInvalidTick
	}

	m := s.Movement
	if !finite(m.SpeedMin, m.SpeedMax) || !(m.SpeedMin >= 0 && m.SpeedMin < m.SpeedMax) {
		return fmt.Errorf("%w: [%g, %g)", ErrInvalidSpeedRange, m.SpeedMin, m.SpeedMax)
	}
	extent := max(abs(m.DirectionMin), abs(m.DirectionMax))
	if !finite(m.DirectionMin, m.DirectionMax) || !(m.DirectionMin < m.DirectionMax) ||
		extent < minDirectionExtent || extent > maxDirectionExtent {
		return fmt.Errorf("%w: [%g, %g)", ErrInvalidDirection, m.DirectionMin, m.DirectionMax)
	}
	if math.IsNaN(m.RedirectInterval) || math.IsInf(m.RedirectInterval, 0) || !(m.RedirectInterval > 0) {
		return ErrInvalidInterval
	}

	prefabs := make(map[string]struct{}, len(s.Prefabs))
	for _, p := range s.Prefabs {
		if _, dup := prefabs[p.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicatePrefab, p.Name)
		}
		prefabs[p.Name] = struct{}{}
	}

	if len(s.Spawners) == 0 {
		return ErrNoSpawners
	}
	for i, sp := range s.Spawners {
		if !finite(sp.Rate) || sp.Rate < 0 {
			return fmt.Errorf("spawner %d (%s): %w", i, sp.Name, ErrInvalidRate)
		}
		if !finite(sp.FirstSpawn, sp.Position[0], sp.Position[1], sp.Position[2]) {
			return fmt.Errorf("spawner %d (%s): position or first_spawn: %w", i, sp.Name, ErrNotFinite)
		}
		if _, ok := prefabs[sp.Prefab]; !ok {
			return fmt.Errorf("spawner %d (%s): %w %q", i, sp.Name, ErrUnknownPrefab, sp.Prefab)
		}
	}
	return nil
}

func finite(values ...float32) bool {
	for _, v := range values {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func abs(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
