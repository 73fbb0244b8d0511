//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/plus3/drift/sim"
)

func initializeSimulation(opts Options) (*Simulation, func(), error) {
	wire.Build(
		provideLogger,
		provideScene,
		sim.NewWorld,
		wire.Struct(new(Simulation), "*"),
	)
	return nil, nil, nil
}
