package genetic

import (
	"github.com/copyleftdev/genopt/internal/optimization"
)

// Crossover returns one offspring for every ordered pair (j, k), j != k, of
// parents, taking x from parents[j] and y from parents[k]. Offspring are
// ordered row-major by (j, k), giving N*(N-1) candidates for N parents.
func Crossover(f optimization.Objective, parents optimization.Population) optimization.Population {
	n := len(parents)
	if n < 2 {
		return optimization.Population{}
	}
	children := make(optimization.Population, 0, n*(n-1))
	for j := 0; j < n; j++ {
		for k := 0; k < n; k++ {
			if j == k {
				continue
			}
			children = append(children, optimization.NewCandidate(f, parents[j].X(), parents[k].Y()))
		}
	}
	return children
}

// Breed returns the working pool for one generation: the parents followed by
// their offspring, N^2 candidates in total. parents is not modified.
func Breed(f optimization.Objective, parents optimization.Population) optimization.Population {
	children := Crossover(f, parents)
	pool := make(optimization.Population, 0, len(parents)+len(children))
	pool = append(pool, parents...)
	return append(pool, children...)
}
