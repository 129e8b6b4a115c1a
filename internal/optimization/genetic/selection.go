package genetic

import (
	"sort"

	"github.com/copyleftdev/genopt/internal/optimization"
)

// Selector shrinks a post-mutation pool back to the population size.
type Selector interface {
	Name() string
	Select(f optimization.Objective, pool optimization.Population, keep int) (optimization.Population, error)
}

var selectors = map[string]func() Selector{
	optimization.SelectionTruncation: func() Selector { return Truncation{} },
	optimization.SelectionTopTwo:     func() Selector { return TopTwoRecombination{} },
}

// SelectorByName returns the selection strategy registered under name.
func SelectorByName(name string) (Selector, error) {
	ctor, ok := selectors[name]
	if !ok {
		return nil, optimization.NewErrorf(optimization.ErrInvalidSettings,
			"unknown selection strategy %q", name).WithComponent("selection")
	}
	return ctor(), nil
}

// Rank returns a copy of pool sorted by descending fitness. Candidates with
// equal fitness keep their relative order from pool.
func Rank(pool optimization.Population) optimization.Population {
	ranked := pool.Clone()
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Fitness() > ranked[j].Fitness()
	})
	return ranked
}

func checkPool(pool optimization.Population, keep, min int) error {
	if keep < 1 {
		return optimization.NewErrorf(optimization.ErrInvalidSettings,
			"keep must be >= 1 (got %d)", keep).WithComponent("selection")
	}
	need := keep
	if min > need {
		need = min
	}
	if len(pool) < need {
		return optimization.NewErrorf(optimization.ErrInsufficientPool,
			"need %d candidates, pool has %d", need, len(pool)).WithComponent("selection")
	}
	return nil
}

// Truncation keeps the keep best candidates of the pool. It is the default
// elitist strategy.
type Truncation struct{}

// Name implements Selector.
func (Truncation) Name() string { return optimization.SelectionTruncation }

// Select implements Selector.
func (Truncation) Select(_ optimization.Objective, pool optimization.Population, keep int) (optimization.Population, error) {
	if err := checkPool(pool, keep, 0); err != nil {
		return nil, err
	}
	return Rank(pool)[:keep], nil
}

// TopTwoRecombination rebuilds the next generation from the coordinates of
// the two best ranked candidates A and B: (A.x,A.y), (B.x,B.y), (A.x,B.y)
// and (B.x,A.y). When A and B have exactly equal fitness, B is taken one
// rank lower if the pool allows, since tied leaders are usually duplicates.
// Slots beyond four are filled from the ranking after B. The result is
// ranked like any other selected population.
type TopTwoRecombination struct{}

// Name implements Selector.
func (TopTwoRecombination) Name() string { return optimization.SelectionTopTwo }

// Select implements Selector.
func (TopTwoRecombination) Select(f optimization.Objective, pool optimization.Population, keep int) (optimization.Population, error) {
	if err := checkPool(pool, keep, 2); err != nil {
		return nil, err
	}
	ranked := Rank(pool)

	second := 1
	if ranked[0].Fitness() == ranked[1].Fitness() && len(ranked) > 2 {
		second = 2
	}
	a, b := ranked[0], ranked[second]

	next := optimization.Population{
		a,
		b,
		optimization.NewCandidate(f, a.X(), b.Y()),
		optimization.NewCandidate(f, b.X(), a.Y()),
	}
	if keep <= len(next) {
		return Rank(next[:keep]), nil
	}
	for i := second + 1; len(next) < keep && i < len(ranked); i++ {
		next = append(next, ranked[i])
	}
	return Rank(next), nil
}
