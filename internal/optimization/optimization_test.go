package optimization

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCandidate(t *testing.T) {
	c := NewCandidate(testObjectiveFunc, 1.5, -0.5)

	assert.Equal(t, 1.5, c.X())
	assert.Equal(t, -0.5, c.Y())
	assert.Equal(t, testObjectiveFunc(1.5, -0.5), c.Fitness())
	assert.True(t, c.Valid(testObjectiveFunc))

	// Rebuilding from its own coordinates yields the same fitness.
	again := NewCandidate(testObjectiveFunc, c.X(), c.Y())
	assert.Equal(t, c.Fitness(), again.Fitness())
}

func TestCandidateMoved(t *testing.T) {
	c := NewCandidate(testObjectiveFunc, 1, 1)
	m := c.Moved(testObjectiveFunc, 0.5, 0)

	assert.Equal(t, 1.0, c.X(), "original must be untouched")
	assert.Equal(t, 0.5, m.X())
	assert.Equal(t, testObjectiveFunc(0.5, 0), m.Fitness())
}

func TestCandidateValidDetectsStaleFitness(t *testing.T) {
	c := NewCandidate(testObjectiveFunc, 1, 1)
	other := func(x, y float64) float64 { return x + y }

	assert.False(t, c.Valid(other))
}

func TestCandidateMarshalJSON(t *testing.T) {
	c := NewCandidate(func(x, y float64) float64 { return x * y }, 2, 3)

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":2,"y":3,"fit":6}`, string(data))
}

func TestCandidateMarshalJSONNonFinite(t *testing.T) {
	c := NewCandidate(func(x, y float64) float64 { return x * x }, 1e200, math.Inf(-1))

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1e+200,"y":null,"fit":null}`, string(data))
}

func TestStatsMarshalJSON(t *testing.T) {
	data, err := json.Marshal(Stats{Best: math.Inf(1), Worst: 1, Mean: math.Inf(1), StdDev: math.NaN()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"best":null,"worst":1,"mean":null,"std_dev":null}`, string(data))

	data, err = json.Marshal(Generation{Index: 2, Stats: Stats{Best: 3, Worst: 1, Mean: 2, StdDev: 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"generation":2,"population":null,"stats":{"best":3,"worst":1,"mean":2,"std_dev":1},"mutations":0}`, string(data))
}

func TestPopulationClone(t *testing.T) {
	p := PopulationOf(testObjectiveFunc, [2]float64{1, 1}, [2]float64{2, 2})
	c := p.Clone()
	c[0] = NewCandidate(testObjectiveFunc, 0, 0)

	assert.Equal(t, 1.0, p[0].X())
	assert.Nil(t, Population(nil).Clone())
}

func TestDomainValidate(t *testing.T) {
	tests := []struct {
		name    string
		domain  Domain
		wantErr bool
	}{
		{"valid", Domain{0, 2, -2, 2}, false},
		{"degenerate x", Domain{1, 1, -2, 2}, true},
		{"inverted y", Domain{0, 2, 3, -3}, true},
		{"degenerate y", Domain{0, 2, 0, 0}, true},
		{"nan bound", Domain{math.NaN(), 2, -2, 2}, true},
		{"infinite lower bound", Domain{math.Inf(-1), 0, -1, 1}, true},
		{"infinite upper bound", Domain{0, 2, -1, math.Inf(1)}, true},
		{"overflowing width", Domain{-1e308, 1e308, -1, 1}, true},
		{"wide but finite", Domain{-1e300, 1e300, -1, 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.domain.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDomain))
		})
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		kind   error
	}{
		{"defaults", func(*Settings) {}, nil},
		{"bad domain", func(s *Settings) { s.Domain.XMax = s.Domain.XMin }, ErrInvalidDomain},
		{"zero population", func(s *Settings) { s.PopulationSize = 0 }, ErrInvalidSettings},
		{"negative generations", func(s *Settings) { s.Generations = -1 }, ErrInvalidSettings},
		{"probability above one", func(s *Settings) { s.MutationProbability = 1.5 }, ErrInvalidSettings},
		{"empty range", func(s *Settings) { s.MutationRange = Range{Lo: 5, Hi: 5} }, ErrInvalidSettings},
		{"unbounded range", func(s *Settings) { s.MutationRange = Range{Lo: math.Inf(-1), Hi: 1} }, ErrInvalidSettings},
		{"infinite domain", func(s *Settings) { s.Domain.YMax = math.Inf(1) }, ErrInvalidDomain},
		{"zero modulus", func(s *Settings) { s.Modulus = 0 }, ErrInvalidSettings},
		{"unknown policy", func(s *Settings) { s.MutationPolicy = "gaussian" }, ErrInvalidSettings},
		{"unknown selection", func(s *Settings) { s.Selection = "roulette" }, ErrInvalidSettings},
		{"single candidate truncation", func(s *Settings) { s.PopulationSize = 1 }, nil},
		{"single candidate top-two", func(s *Settings) {
			s.PopulationSize = 1
			s.Selection = SelectionTopTwo
		}, ErrInvalidSettings},
		{"independent top-two", func(s *Settings) {
			s.MutationPolicy = MutationIndependent
			s.Selection = SelectionTopTwo
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			if tt.kind == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestSummarize(t *testing.T) {
	id := func(x, _ float64) float64 { return x }

	assert.Equal(t, Stats{}, Summarize(nil))

	single := Summarize(PopulationOf(id, [2]float64{3, 0}))
	assert.Equal(t, Stats{Best: 3, Worst: 3, Mean: 3}, single)

	s := Summarize(PopulationOf(id, [2]float64{1, 0}, [2]float64{2, 0}, [2]float64{3, 0}))
	assert.Equal(t, 3.0, s.Best)
	assert.Equal(t, 1.0, s.Worst)
	assert.InDelta(t, 2.0, s.Mean, 1e-12)
	assert.InDelta(t, 1.0, s.StdDev, 1e-12)
}

func TestErrorFormatting(t *testing.T) {
	err := NewErrorf(ErrInsufficientPool, "need %d, have %d", 4, 3).
		WithComponent("selection").
		WithOperation("Select")

	assert.Equal(t, "selection: Select: need 4, have 3: insufficient pool", err.Error())
	assert.ErrorIs(t, err, ErrInsufficientPool)

	e, ok := IsOptimizationError(WrapError(err, "generation 7"))
	require.True(t, ok)
	assert.Equal(t, "generation 7", e.Message)

	assert.Nil(t, WrapError(nil, "nothing"))
	var nilErr *Error
	assert.Equal(t, "<nil>", nilErr.Error())
}
