package main

import (
	"time"

	"github.com/plus3/drift/config"
	"github.com/plus3/drift/logging"
	"github.com/plus3/drift/sim"
	"go.uber.org/zap"
)

// Options are the command-line settings.
type Options struct {
	ScenePath string
	Duration  time.Duration
	Tick      time.Duration
	Workers   int
	SyncPoint bool
	LogLevel  string
}

// Simulation is everything main needs to run a scene.
type Simulation struct {
	Options Options
	Scene   *config.Scene
	Logger  *zap.Logger
	World   *sim.World
}

func provideLogger(opts Options) (*zap.Logger, func(), error) {
	logger, err := logging.New(opts.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// provideScene loads the scene file, or a single default spawner when no
// file is given, and applies flag overrides.
func provideScene(opts Options) (*config.Scene, error) {
	var (
		scene *config.Scene
		err   error
	)
	if opts.ScenePath != "" {
		scene, err = config.Load(opts.ScenePath)
		if err != nil {
			return nil, err
		}
	} else {
		scene = config.Default()
		scene.Prefabs = []config.Prefab{{Name: "mover"}}
		scene.Spawners = []config.Spawner{{Name: "origin", Rate: 2.0, Prefab: "mover"}}
	}

	if opts.Tick > 0 {
		scene.Tick = opts.Tick
	}
	if opts.Workers > 0 {
		scene.Workers = opts.Workers
	}
	if opts.SyncPoint {
		scene.SyncPoint = true
	}
	return scene, scene.Validate()
}
