package genetic

import (
	"github.com/copyleftdev/genopt/internal/optimization"
)

// DefaultPopulationSize matches the population size of optimization.DefaultSettings.
const DefaultPopulationSize = 4

// Fill builds an initial population of size independent samples from d.
// The result carries no ordering guarantee.
func Fill(s *Sampler, d optimization.Domain, f optimization.Objective, size int) (optimization.Population, error) {
	if size < 1 {
		return nil, optimization.NewErrorf(optimization.ErrInvalidSettings,
			"population size must be >= 1 (got %d)", size).WithComponent("population")
	}
	pop := make(optimization.Population, 0, size)
	for i := 0; i < size; i++ {
		x, y, err := s.Sample(d)
		if err != nil {
			return nil, err
		}
		pop = append(pop, optimization.NewCandidate(f, x, y))
	}
	return pop, nil
}
