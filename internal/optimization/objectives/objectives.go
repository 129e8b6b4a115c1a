// Package objectives holds the named objective functions a run can be
// started with. Objectives cannot travel over the wire, so the service and
// the CLI refer to them by name.
package objectives

import (
	"math"
	"sort"
	"sync"

	"github.com/copyleftdev/genopt/internal/optimization"
)

// DampedSine is the default objective sin(x)^2 / (1 + x^2 + y^2). It is
// total and bounded in [0, 1).
const DampedSine = "damped-sine"

var (
	registryMu sync.RWMutex
	registry   = map[string]optimization.Objective{}
)

func init() {
	Register(DampedSine, func(x, y float64) float64 {
		s := math.Sin(x)
		return s * s / (1 + x*x + y*y)
	})
	// sphere grows without bound; maximizing it rewards leaving the domain.
	Register("sphere", func(x, y float64) float64 { return x*x + y*y })
	Register("neg-sphere", Negate(func(x, y float64) float64 { return x*x + y*y }))
	// Himmelblau has four equal minima; negated so the optimizer seeks them.
	Register("neg-himmelblau", Negate(func(x, y float64) float64 {
		a := x*x + y - 11
		b := x + y*y - 7
		return a*a + b*b
	}))
}

// Register adds or replaces an objective under name.
func Register(name string, f optimization.Objective) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Get returns the objective registered under name.
func Get(name string) (optimization.Objective, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	if !ok {
		return nil, optimization.NewErrorf(optimization.ErrInvalidSettings,
			"unknown objective %q", name).WithComponent("objectives")
	}
	return f, nil
}

// Names returns all registered objective names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Negate turns a minimization objective into one the optimizer maximizes.
func Negate(f optimization.Objective) optimization.Objective {
	return func(x, y float64) float64 { return -f(x, y) }
}
