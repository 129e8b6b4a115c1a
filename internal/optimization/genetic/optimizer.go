package genetic

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/copyleftdev/genopt/internal/optimization"
)

// State is the lifecycle phase of a GeneticOptimizer.
type State string

const (
	StateInitialized State = "initialized"
	StateEvolving    State = "evolving"
	StateDone        State = "done"
	StateFailed      State = "failed"
	StateCancelled   State = "cancelled"
)

// GeneticOptimizer drives the generational loop: fill the population once,
// then repeat crossover, mutation and selection for a fixed number of
// generations, reporting each selected population.
type GeneticOptimizer struct {
	// Configuration
	objective optimization.Objective
	settings  optimization.Settings

	// Operators
	rng      *rand.Rand
	sampler  *Sampler
	mutator  Mutator
	selector Selector

	reporter optimization.Reporter
	logger   *zap.Logger

	mu      sync.RWMutex
	state   State
	best    optimization.Candidate
	hasBest bool
	history []optimization.Generation

	// For cancellation
	cancel context.CancelFunc
}

const maxHistoryPrealloc = 1024

// Option customizes a GeneticOptimizer.
type Option func(*GeneticOptimizer)

// WithReporter sets the sink that receives every generation.
func WithReporter(r optimization.Reporter) Option {
	return func(o *GeneticOptimizer) { o.reporter = r }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *GeneticOptimizer) {
		if l != nil {
			o.logger = l.Named("genetic")
		}
	}
}

// WithSelector overrides the selection strategy named in the settings.
func WithSelector(s Selector) Option {
	return func(o *GeneticOptimizer) {
		if s != nil {
			o.selector = s
		}
	}
}

// WithRand replaces the random source. Tests use it to share a seeded source
// with a reference computation.
func WithRand(rng *rand.Rand) Option {
	return func(o *GeneticOptimizer) {
		if rng != nil {
			o.rng = rng
		}
	}
}

// NewGeneticOptimizer validates settings and builds an optimizer for objective.
func NewGeneticOptimizer(objective optimization.Objective, settings optimization.Settings, opts ...Option) (*GeneticOptimizer, error) {
	if objective == nil {
		return nil, optimization.NewErrorf(optimization.ErrInvalidSettings, "objective is required").
			WithComponent("genetic")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	selector, err := SelectorByName(settings.Selection)
	if err != nil {
		return nil, err
	}

	o := &GeneticOptimizer{
		objective: objective,
		settings:  settings,
		rng:       NewRand(settings.RandomSeed),
		mutator:   NewMutator(settings),
		selector:  selector,
		logger:    zap.NewNop(),
		state:     StateInitialized,
		history:   make([]optimization.Generation, 0, min(settings.Generations, maxHistoryPrealloc)),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.sampler = NewSampler(o.rng)
	return o, nil
}

// Optimize runs the configured number of generations. On failure or
// cancellation it returns the partial result built from the generations
// already reported, together with the error.
func (o *GeneticOptimizer) Optimize(ctx context.Context) (*optimization.OptimizationResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	o.cancel = cancel
	o.state = StateInitialized
	o.history = o.history[:0]
	o.hasBest = false
	o.mu.Unlock()

	n := o.settings.PopulationSize
	population, err := Fill(o.sampler, o.settings.Domain, o.objective, n)
	if err != nil {
		o.setState(StateFailed)
		return nil, optimization.WrapError(err, "initial population")
	}
	o.observe(population)

	o.logger.Debug("Starting evolution",
		zap.Int("population", n),
		zap.Int("generations", o.settings.Generations),
		zap.String("selection", o.selector.Name()),
		zap.String("mutation_policy", string(o.mutator.Policy)),
	)

	o.setState(StateEvolving)
	mutations := 0
	for gen := 1; gen <= o.settings.Generations; gen++ {
		select {
		case <-ctx.Done():
			o.setState(StateCancelled)
			o.logger.Info("Evolution cancelled", zap.Int("completed_generations", gen-1))
			return o.result(population, mutations), ctx.Err()
		default:
		}

		pool := Breed(o.objective, population)
		mutated := o.mutator.Mutate(o.rng, o.objective, pool)
		next, err := o.selector.Select(o.objective, pool, n)
		if err != nil {
			o.setState(StateFailed)
			o.logger.Error("Selection failed", zap.Int("generation", gen), zap.Error(err))
			return o.result(population, mutations), optimization.NewErrorf(err, "generation %d", gen).
				WithOperation("Select")
		}
		mutations += mutated
		population = next

		g := optimization.Generation{
			Index:      gen,
			Population: next.Clone(),
			Stats:      optimization.Summarize(next),
			Mutations:  mutated,
		}
		o.record(g)
		o.report(ctx, g)
	}

	o.setState(StateDone)
	res := o.result(population, mutations)
	o.logger.Debug("Evolution finished",
		zap.Int("generations", res.Generations),
		zap.Float64("best_fitness", res.Best.Fitness()),
	)
	return res, nil
}

// report hands g to the reporter. Reporting is best effort: a failing sink
// is logged and the run continues.
func (o *GeneticOptimizer) report(ctx context.Context, g optimization.Generation) {
	if o.reporter == nil {
		return
	}
	if err := o.reporter.Report(ctx, g); err != nil && !errors.Is(err, context.Canceled) {
		o.logger.Warn("Failed to report generation",
			zap.Int("generation", g.Index),
			zap.Error(err),
		)
	}
}

func (o *GeneticOptimizer) record(g optimization.Generation) {
	o.mu.Lock()
	o.history = append(o.history, g)
	o.mu.Unlock()
	o.observe(g.Population)
}

// observe updates the best candidate seen so far
func (o *GeneticOptimizer) observe(p optimization.Population) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, c := range p {
		if !o.hasBest || c.Fitness() > o.best.Fitness() {
			o.best = c
			o.hasBest = true
		}
	}
}

func (o *GeneticOptimizer) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *GeneticOptimizer) result(population optimization.Population, mutations int) *optimization.OptimizationResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	history := make([]optimization.Generation, len(o.history))
	copy(history, o.history)
	return &optimization.OptimizationResult{
		Best:        o.best,
		Population:  population,
		History:     history,
		Generations: len(history),
		Mutations:   mutations,
	}
}

// Best returns the best candidate found so far
func (o *GeneticOptimizer) Best() (optimization.Candidate, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.best, o.hasBest
}

// History returns the generations emitted so far
func (o *GeneticOptimizer) History() []optimization.Generation {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]optimization.Generation, len(o.history))
	copy(out, o.history)
	return out
}

// State returns the current lifecycle phase.
func (o *GeneticOptimizer) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Progress returns the completed fraction of the configured generations.
func (o *GeneticOptimizer) Progress() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.settings.Generations == 0 {
		if o.state == StateDone {
			return 1
		}
		return 0
	}
	return float64(len(o.history)) / float64(o.settings.Generations)
}

// Settings returns the settings the optimizer was built with.
func (o *GeneticOptimizer) Settings() optimization.Settings {
	return o.settings
}

// Stop stops the optimization process
func (o *GeneticOptimizer) Stop() {
	o.mu.RLock()
	cancel := o.cancel
	o.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

var _ optimization.Optimizer = (*GeneticOptimizer)(nil)
