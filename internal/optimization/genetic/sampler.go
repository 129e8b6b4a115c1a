// Package genetic implements a small-population genetic algorithm over a
// two dimensional real domain: sampling, crossover, mutation, selection and
// the generational loop that ties them together.
package genetic

import (
	"math"
	"math/rand"
	"time"

	"github.com/copyleftdev/genopt/internal/optimization"
)

// Sampler draws uniformly distributed points from a domain. One Sampler owns
// one random source for the whole run; it is not safe for concurrent use.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a sampler drawing from rng.
func NewSampler(rng *rand.Rand) *Sampler {
	return &Sampler{rng: rng}
}

// NewRand returns a random source seeded with seed, or with the clock when
// seed is zero.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Sample draws x from [XMin, XMax) and then y from [YMin, YMax) with two
// independent draws.
func (s *Sampler) Sample(d optimization.Domain) (x, y float64, err error) {
	if err := d.Validate(); err != nil {
		return 0, 0, err
	}
	x = uniform(s.rng, d.XMin, d.XMax)
	y = uniform(s.rng, d.YMin, d.YMax)
	return x, y, nil
}

// uniform draws from [lo, hi). Rounding in lo+u*(hi-lo) can land exactly on
// hi for some bounds, so the result is clamped below it.
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	v := lo + rng.Float64()*(hi-lo)
	if v >= hi {
		v = math.Nextafter(hi, lo)
	}
	return v
}
