package optimization

import (
	"math"
	"testing"
)

// testObjectiveFunc is the damped sine used across tests
func testObjectiveFunc(x, y float64) float64 {
	s := math.Sin(x)
	return s * s / (1 + x*x + y*y)
}

// AssertPopulationValid fails the test if any candidate carries a fitness
// that does not match f at its coordinates
func AssertPopulationValid(t testing.TB, f Objective, p Population) {
	t.Helper()

	for i, c := range p {
		if !c.Valid(f) {
			t.Fatalf("candidate %d at (%v, %v): stale fitness %v, want %v",
				i, c.X(), c.Y(), c.Fitness(), f(c.X(), c.Y()))
		}
	}
}

// AssertNonIncreasing fails the test unless fitness never increases along p
func AssertNonIncreasing(t testing.TB, p Population) {
	t.Helper()

	for i := 1; i < len(p); i++ {
		if p[i].Fitness() > p[i-1].Fitness() {
			t.Fatalf("at index %d: fitness %v follows %v", i, p[i].Fitness(), p[i-1].Fitness())
		}
	}
}

// PopulationOf builds a population from (x, y) pairs under f
func PopulationOf(f Objective, points ...[2]float64) Population {
	p := make(Population, len(points))
	for i, pt := range points {
		p[i] = NewCandidate(f, pt[0], pt[1])
	}
	return p
}
