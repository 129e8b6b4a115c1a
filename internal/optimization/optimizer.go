package optimization

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Optimizer defines the interface for optimization algorithms
type Optimizer interface {
	// Optimize runs the optimization process
	Optimize(ctx context.Context) (*OptimizationResult, error)

	// Best returns the best candidate found so far
	Best() (Candidate, bool)

	// History returns the generations emitted so far
	History() []Generation

	// Stop gracefully stops the optimization process
	Stop()
}

// Domain is the rectangle initial candidates are sampled from.
type Domain struct {
	XMin float64 `json:"x_min" yaml:"x_min"`
	XMax float64 `json:"x_max" yaml:"x_max"`
	YMin float64 `json:"y_min" yaml:"y_min"`
	YMax float64 `json:"y_max" yaml:"y_max"`
}

// Validate fails with ErrInvalidDomain unless both axes are finite and have a
// positive, finite width.
func (d Domain) Validate() error {
	if err := validAxis("x", d.XMin, d.XMax); err != nil {
		return err
	}
	return validAxis("y", d.YMin, d.YMax)
}

func validAxis(name string, lo, hi float64) error {
	// Negated comparison so NaN bounds are rejected too.
	if !(lo < hi) {
		return NewErrorf(ErrInvalidDomain, "%s range [%g, %g) is empty", name, lo, hi).
			WithComponent("domain")
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) || math.IsInf(hi-lo, 0) {
		return NewErrorf(ErrInvalidDomain, "%s range [%g, %g) is not finite", name, lo, hi).
			WithComponent("domain")
	}
	return nil
}

// Range is a half-open interval [Lo, Hi) used for mutation scaling draws.
type Range struct {
	Lo float64 `json:"lo" yaml:"lo"`
	Hi float64 `json:"hi" yaml:"hi"`
}

// MutationPolicy selects how the y coordinate is perturbed.
type MutationPolicy string

const (
	// MutationCoupled derives the new y from the already mutated x, so
	// both coordinates share the same modular orbit. It is the default.
	MutationCoupled MutationPolicy = "coupled"
	// MutationIndependent perturbs y from its own previous value.
	MutationIndependent MutationPolicy = "independent"
)

// Selection strategy names.
const (
	SelectionTruncation = "truncation"
	SelectionTopTwo     = "top-two"
)

// Settings holds every tunable of a run. None of them is hardcoded in the
// operators.
type Settings struct {
	Domain              Domain         `json:"domain" yaml:"domain"`
	PopulationSize      int            `json:"population_size" yaml:"population_size"`
	Generations         int            `json:"generations" yaml:"generations"`
	MutationProbability float64        `json:"mutation_probability" yaml:"mutation_probability"`
	MutationRange       Range          `json:"mutation_range" yaml:"mutation_range"`
	Modulus             float64        `json:"modulus" yaml:"modulus"`
	MutationPolicy      MutationPolicy `json:"mutation_policy" yaml:"mutation_policy"`
	Selection           string         `json:"selection" yaml:"selection"`
	// RandomSeed seeds the run's random source. Zero means seed from the clock.
	RandomSeed int64 `json:"random_seed" yaml:"random_seed"`
}

// DefaultSettings returns the classic damped-sine setup: a population of
// four evolved for 1000 generations on [0,2]x[-2,2].
func DefaultSettings() Settings {
	return Settings{
		Domain:              Domain{XMin: 0, XMax: 2, YMin: -2, YMax: 2},
		PopulationSize:      4,
		Generations:         1000,
		MutationProbability: 0.3,
		MutationRange:       Range{Lo: -100, Hi: 100},
		Modulus:             2,
		MutationPolicy:      MutationCoupled,
		Selection:           SelectionTruncation,
	}
}

// Validate checks the settings and returns an error wrapping
// ErrInvalidSettings or ErrInvalidDomain.
func (s Settings) Validate() error {
	if err := s.Domain.Validate(); err != nil {
		return err
	}
	invalid := func(format string, args ...interface{}) error {
		return NewErrorf(ErrInvalidSettings, format, args...).WithComponent("settings")
	}
	if s.PopulationSize < 1 {
		return invalid("population size must be >= 1 (got %d)", s.PopulationSize)
	}
	if s.Generations < 0 {
		return invalid("generations must be >= 0 (got %d)", s.Generations)
	}
	if !(s.MutationProbability >= 0 && s.MutationProbability <= 1) {
		return invalid("mutation probability must be in [0,1] (got %g)", s.MutationProbability)
	}
	if !(s.MutationRange.Lo < s.MutationRange.Hi) {
		return invalid("mutation range [%g, %g) is empty", s.MutationRange.Lo, s.MutationRange.Hi)
	}
	if math.IsInf(s.MutationRange.Lo, 0) || math.IsInf(s.MutationRange.Hi, 0) ||
		math.IsInf(s.MutationRange.Hi-s.MutationRange.Lo, 0) {
		return invalid("mutation range [%g, %g) is not finite", s.MutationRange.Lo, s.MutationRange.Hi)
	}
	if !(s.Modulus > 0) || math.IsInf(s.Modulus, 1) {
		return invalid("modulus must be positive and finite (got %g)", s.Modulus)
	}
	switch s.MutationPolicy {
	case MutationCoupled, MutationIndependent:
	default:
		return invalid("unknown mutation policy %q", s.MutationPolicy)
	}
	switch s.Selection {
	case SelectionTruncation:
	case SelectionTopTwo:
		// Recombination needs two distinct parents in the pool.
		if s.PopulationSize < 2 {
			return invalid("selection %q needs a population of at least 2 (got %d)", s.Selection, s.PopulationSize)
		}
	default:
		return invalid("unknown selection strategy %q", s.Selection)
	}
	return nil
}

// Stats summarizes the fitness of a population.
type Stats struct {
	Best   float64 `json:"best"`
	Worst  float64 `json:"worst"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

type statsJSON struct {
	Best   jsonFloat `json:"best"`
	Worst  jsonFloat `json:"worst"`
	Mean   jsonFloat `json:"mean"`
	StdDev jsonFloat `json:"std_dev"`
}

// MarshalJSON encodes non-finite statistics as null.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(statsJSON{
		Best:   jsonFloat(s.Best),
		Worst:  jsonFloat(s.Worst),
		Mean:   jsonFloat(s.Mean),
		StdDev: jsonFloat(s.StdDev),
	})
}

// Summarize computes fitness statistics for p. An empty population yields
// the zero Stats.
func Summarize(p Population) Stats {
	if len(p) == 0 {
		return Stats{}
	}
	fit := p.Fitnesses()
	s := Stats{
		Best:  floats.Max(fit),
		Worst: floats.Min(fit),
	}
	if len(fit) < 2 {
		s.Mean = fit[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(fit, nil)
	return s
}

// Generation is one emitted step of a run: the surviving population ranked
// best first.
type Generation struct {
	Index      int        `json:"generation"`
	Population Population `json:"population"`
	Stats      Stats      `json:"stats"`
	Mutations  int        `json:"mutations"`
}

// Reporter receives every generation as soon as it has been selected.
// Report errors never abort a run.
type Reporter interface {
	Report(ctx context.Context, g Generation) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, g Generation) error

// Report calls f(ctx, g).
func (f ReporterFunc) Report(ctx context.Context, g Generation) error {
	return f(ctx, g)
}

// OptimizationResult contains the result of an optimization run
type OptimizationResult struct {
	// Best is the best candidate seen in any emitted population, including
	// the initial one.
	Best Candidate
	// Population is the final population.
	Population  Population
	History     []Generation
	Generations int
	Mutations   int
}

// String renders a short human readable summary.
func (r *OptimizationResult) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("generations=%d best=(%g, %g) fit=%g",
		r.Generations, r.Best.X(), r.Best.Y(), r.Best.Fitness())
}
