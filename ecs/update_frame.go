package ecs

// UpdateFrame is what every system receives once per tick.
type UpdateFrame struct {
	// Tick counts from 1.
	Tick uint64
	// ElapsedTime is the simulation clock at this tick, in seconds.
	ElapsedTime float64
	// DeltaTime is the time since the previous tick, in seconds.
	DeltaTime float32
	// Workers bounds the goroutines a system may use for ParallelFor.
	Workers int
	// ChunkSize is the chunk size systems should pass to ParallelFor.
	ChunkSize int

	Commands *Commands
	Storage  *Storage
}
