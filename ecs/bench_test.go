package ecs_test

import (
	"testing"

	"github.com/plus3/drift/ecs"
)

type benchItem = struct {
	*Position
	*Velocity
}

func newBenchQuery(b *testing.B, n int) *ecs.Query[benchItem] {
	b.Helper()
	storage := ecs.NewStorage(newTestRegistry())
	for i := range n {
		storage.Spawn(Position{X: float32(i)}, Velocity{DX: 1, DY: 1})
	}
	q := ecs.NewQuery[benchItem](storage)
	q.Execute()
	return q
}

func integrate(chunk ecs.Chunk[benchItem]) error {
	for _, item := range chunk.Items {
		item.Position.X += item.Velocity.DX * 0.016
		item.Position.Y += item.Velocity.DY * 0.016
	}
	return nil
}

func BenchmarkQueryExecute(b *testing.B) {
	q := newBenchQuery(b, 10000)
	b.ResetTimer()
	for b.Loop() {
		q.Execute()
	}
}

func BenchmarkParallelForSerial(b *testing.B) {
	q := newBenchQuery(b, 100000)
	b.ResetTimer()
	for b.Loop() {
		_ = ecs.ParallelFor(q, 1, ecs.DefaultChunkSize, integrate)
	}
}

func BenchmarkParallelForWorkers(b *testing.B) {
	q := newBenchQuery(b, 100000)
	b.ResetTimer()
	for b.Loop() {
		_ = ecs.ParallelFor(q, 0, ecs.DefaultChunkSize, integrate)
	}
}
