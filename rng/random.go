// Package rng provides the seedable generator used by the simulation and the
// per-tick source that hands out independent streams to parallel work.
package rng

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// maxDirectionDraws bounds the redraws in NextDirection. Ranges whose samples
// underflow or overflow in single precision, or that are NaN, never produce a
// usable vector; those get fallbackDirection.
const maxDirectionDraws = 16

var fallbackDirection = mgl32.Vec3{1, 0, 0}

// fallbackSeed replaces a zero seed; xorshift never leaves the zero state.
const fallbackSeed uint32 = 0x6E624EB7

// Random is a 32-bit xorshift generator. The zero value is not usable; build
// one with New. Random is a value type: copying it forks the stream.
type Random struct {
	state uint32
}

// New seeds a generator. A zero seed is replaced by a fixed non-zero one.
func New(seed uint32) Random {
	if seed == 0 {
		seed = fallbackSeed
	}
	r := Random{state: seed}
	r.next()
	return r
}

// State exposes the current state, mostly for tests and debugging.
func (r *Random) State() uint32 {
	return r.state
}

func (r *Random) next() uint32 {
	t := r.state
	r.state ^= r.state << 13
	r.state ^= r.state >> 17
	r.state ^= r.state << 5
	return t
}

// NextUInt returns a uniformly distributed uint32.
func (r *Random) NextUInt() uint32 {
	return r.next() - 1
}

// NextFloat returns a float in [0, 1).
func (r *Random) NextFloat() float32 {
	return math.Float32frombits(0x3f800000|(r.next()>>9)) - 1
}

// NextFloatRange returns a float in [min, max).
func (r *Random) NextFloatRange(min, max float32) float32 {
	v := r.NextFloat()*(max-min) + min
	if v >= max && max > min {
		v = math.Nextafter32(max, min)
	}
	return v
}

// NextFloat3 returns a vector with each component in [min, max).
func (r *Random) NextFloat3(min, max float32) mgl32.Vec3 {
	return mgl32.Vec3{
		r.NextFloatRange(min, max),
		r.NextFloatRange(min, max),
		r.NextFloatRange(min, max),
	}
}

// NextDirection samples a point in the cube [min, max)^3 and normalizes it.
// The result is a unit vector but is not uniform on the sphere: directions
// toward the cube's corners are more likely. Simulations depend on this
// distribution, so it is kept. A sample with no usable length is redrawn, at
// most maxDirectionDraws times, after which +X is returned.
func (r *Random) NextDirection(min, max float32) mgl32.Vec3 {
	for range maxDirectionDraws {
		v := r.NextFloat3(min, max)
		if l := v.Len(); l > 0 && !math.IsInf(float64(l), 0) {
			return v.Normalize()
		}
	}
	return fallbackDirection
}
