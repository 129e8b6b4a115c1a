package optimization

import (
	"encoding/json"
	"math"
)

// Objective is the function being maximized. It must be pure and defined for
// every real pair the search can visit, including points outside the
// sampling domain.
type Objective func(x, y float64) float64

// Candidate is a point in the search space together with its cached fitness.
// The fields are unexported so that a candidate can only be built through
// NewCandidate or Moved, both of which evaluate the objective.
type Candidate struct {
	x       float64
	y       float64
	fitness float64
}

// NewCandidate evaluates f at (x, y) and returns the resulting candidate.
func NewCandidate(f Objective, x, y float64) Candidate {
	return Candidate{x: x, y: y, fitness: f(x, y)}
}

// X returns the first coordinate.
func (c Candidate) X() float64 { return c.x }

// Y returns the second coordinate.
func (c Candidate) Y() float64 { return c.y }

// Fitness returns the cached objective value.
func (c Candidate) Fitness() float64 { return c.fitness }

// Moved returns a candidate at (x, y) re-evaluated under f.
func (c Candidate) Moved(f Objective, x, y float64) Candidate {
	return NewCandidate(f, x, y)
}

// Valid reports whether the cached fitness still matches f at the
// candidate's coordinates. NaN fitness is considered valid when f also
// yields NaN.
func (c Candidate) Valid(f Objective) bool {
	v := f(c.x, c.y)
	if math.IsNaN(v) && math.IsNaN(c.fitness) {
		return true
	}
	return v == c.fitness
}

// jsonFloat encodes NaN and ±Inf as null, which encoding/json refuses to
// encode as numbers.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

type candidateJSON struct {
	X       jsonFloat `json:"x"`
	Y       jsonFloat `json:"y"`
	Fitness jsonFloat `json:"fit"`
}

// MarshalJSON encodes the candidate as {"x":..,"y":..,"fit":..}. Non-finite
// values become null.
func (c Candidate) MarshalJSON() ([]byte, error) {
	return json.Marshal(candidateJSON{X: jsonFloat(c.x), Y: jsonFloat(c.y), Fitness: jsonFloat(c.fitness)})
}

// Population is an ordered set of candidates. Order drives pairing during
// crossover and, after selection, rank.
type Population []Candidate

// Clone returns a copy of p that shares no backing array with it.
func (p Population) Clone() Population {
	if p == nil {
		return nil
	}
	out := make(Population, len(p))
	copy(out, p)
	return out
}

// Fitnesses returns the fitness of every candidate in order.
func (p Population) Fitnesses() []float64 {
	out := make([]float64, len(p))
	for i, c := range p {
		out[i] = c.fitness
	}
	return out
}
