package ecs

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize matches the storage block size.
const DefaultChunkSize = BlockSize

// ParallelFor runs fn once per chunk of q's snapshot on at most workers
// goroutines and waits for all of them. Chunks are disjoint, so fn may
// mutate the components it is handed without locking. A worker count below
// one means GOMAXPROCS. The first error returned by fn is returned.
func ParallelFor[T any](q *Query[T], workers int, chunkSize int, fn func(Chunk[T]) error) error {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	if workers == 1 || q.ChunkCount(chunkSize) <= 1 {
		for chunk := range q.Chunks(chunkSize) {
			if err := fn(chunk); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for chunk := range q.Chunks(chunkSize) {
		g.Go(func() error {
			return fn(chunk)
		})
	}
	return g.Wait()
}
