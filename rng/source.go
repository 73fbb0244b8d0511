package rng

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// TickSeed derives a tick's seed from the simulation clock: elapsed
// milliseconds, wrapped to 32 bits.
func TickSeed(elapsed float64) uint32 {
	if elapsed <= 0 || math.IsNaN(elapsed) {
		return 0
	}
	return uint32(uint64(elapsed * 1000))
}

// Source is the random state of one tick. It is never advanced itself;
// instead every parallel work item asks for its own Stream, keyed by a salt
// naming the caller and the work item's index. The same seed, salt and index
// always produce the same stream, whichever goroutine runs the work.
type Source struct {
	seed uint32
}

// NewSource creates a tick source.
func NewSource(seed uint32) *Source {
	return &Source{seed: seed}
}

// Seed returns the tick seed.
func (s *Source) Seed() uint32 {
	return s.seed
}

// Stream returns an independent generator for work item index under salt.
func (s *Source) Stream(salt uint32, index int) Random {
	var key [16]byte
	binary.LittleEndian.PutUint32(key[0:], s.seed)
	binary.LittleEndian.PutUint32(key[4:], salt)
	binary.LittleEndian.PutUint64(key[8:], uint64(index))

	h := xxhash.Sum64(key[:])
	return New(uint32(h) ^ uint32(h>>32))
}
