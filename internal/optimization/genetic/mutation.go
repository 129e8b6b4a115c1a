package genetic

import (
	"math"
	"math/rand"

	"github.com/copyleftdev/genopt/internal/optimization"
)

// Mutator perturbs candidates in place. Each candidate mutates independently
// with probability Probability; a mutated coordinate becomes
// mod(coord * u, Modulus) with u drawn from Range.
//
// math.Mod keeps the sign of the dividend, so mutated coordinates may be
// negative even when the sampling domain is not.
type Mutator struct {
	Probability float64
	Range       optimization.Range
	Modulus     float64
	Policy      optimization.MutationPolicy
}

// NewMutator builds a mutator from run settings.
func NewMutator(s optimization.Settings) Mutator {
	return Mutator{
		Probability: s.MutationProbability,
		Range:       s.MutationRange,
		Modulus:     s.Modulus,
		Policy:      s.MutationPolicy,
	}
}

// Mutate walks pool in order, mutating each candidate that wins its draw and
// re-evaluating it under f. It returns the number of mutated candidates.
func (m Mutator) Mutate(rng *rand.Rand, f optimization.Objective, pool optimization.Population) int {
	mutated := 0
	for i := range pool {
		if rng.Float64() >= m.Probability {
			continue
		}
		x, y := pool[i].X(), pool[i].Y()
		nx := math.Mod(x*uniform(rng, m.Range.Lo, m.Range.Hi), m.Modulus)
		var ny float64
		switch m.Policy {
		case optimization.MutationIndependent:
			ny = math.Mod(y*uniform(rng, m.Range.Lo, m.Range.Hi), m.Modulus)
		default:
			// Coupled: the new y is scaled from the new x, not from y.
			ny = math.Mod(nx*uniform(rng, m.Range.Lo, m.Range.Hi), m.Modulus)
		}
		pool[i] = pool[i].Moved(f, nx, ny)
		mutated++
	}
	return mutated
}
