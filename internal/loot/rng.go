package loot

import (
	"hash/fnv"
	"math/rand/v2"
	"time"
)

// FallbackSeed replaces a derived seed of zero.
const FallbackSeed uint64 = 0x9E3779B97F4A7C15

// Stream is the single seeded random stream used by one generation.
type Stream struct {
	r *rand.Rand
}

// NewStream seeds a PCG stream. A zero seed is replaced by FallbackSeed.
func NewStream(seed uint64) *Stream {
	return &Stream{r: rand.New(rand.NewPCG(NonZero(seed), 0))}
}

// Float64 draws from [0, 1).
func (s *Stream) Float64() float64 { return s.r.Float64() }

// Uint64 draws a full-width value, used for per-item seeds.
func (s *Stream) Uint64() uint64 { return s.r.Uint64() }

// IntRange draws uniformly from [lo, hi]. Reversed bounds are swapped.
func (s *Stream) IntRange(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		return lo
	}
	return lo + s.r.IntN(hi-lo+1)
}

// Chance reports whether a draw falls at or below p.
func (s *Stream) Chance(p float64) bool {
	draw := s.r.Float64()
	return p > 0 && draw <= p
}

// NonZero maps zero to FallbackSeed.
func NonZero(seed uint64) uint64 {
	if seed == 0 {
		return FallbackSeed
	}
	return seed
}

// HashSource hashes a source id into the seed space.
func HashSource(sourceID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sourceID))
	return h.Sum64()
}

// DeriveSeed mixes a request seed with the source id. A zero request seed
// asks for a fresh stream, so the wall clock is mixed in. The result is never
// zero.
func DeriveSeed(requestSeed uint64, sourceID string, now time.Time) uint64 {
	seed := requestSeed ^ HashSource(sourceID)
	if requestSeed == 0 {
		seed ^= uint64(now.UnixNano())
	}
	return NonZero(seed)
}
