package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset is a partial set of GA values. Unset fields leave the current value
// alone.
type Preset struct {
	Description         string      `yaml:"description"`
	Objective           *string     `yaml:"objective"`
	Domain              *[4]float64 `yaml:"domain"` // x_min, x_max, y_min, y_max
	Population          *int        `yaml:"population"`
	Generations         *int        `yaml:"generations"`
	MutationProbability *float64    `yaml:"mutation_probability"`
	MutationRange       *[2]float64 `yaml:"mutation_range"`
	Modulus             *float64    `yaml:"modulus"`
	MutationPolicy      *string     `yaml:"mutation_policy"`
	Selection           *string     `yaml:"selection"`
	Seed                *int64      `yaml:"seed"`
}

type presetFile struct {
	Presets map[string]Preset `yaml:"presets"`
}

// LoadPresets reads a YAML preset file.
func LoadPresets(path string) (map[string]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets %s: %w", path, err)
	}
	if len(f.Presets) == 0 {
		return nil, fmt.Errorf("no presets in %s", path)
	}
	return f.Presets, nil
}

// ApplyTo overwrites the fields of g that p sets.
func (p Preset) ApplyTo(g *GA) {
	if p.Objective != nil {
		g.Objective = *p.Objective
	}
	if p.Domain != nil {
		g.XMin, g.XMax, g.YMin, g.YMax = p.Domain[0], p.Domain[1], p.Domain[2], p.Domain[3]
	}
	if p.Population != nil {
		g.Population = *p.Population
	}
	if p.Generations != nil {
		g.Generations = *p.Generations
	}
	if p.MutationProbability != nil {
		g.MutationProbability = *p.MutationProbability
	}
	if p.MutationRange != nil {
		g.MutationLo, g.MutationHi = p.MutationRange[0], p.MutationRange[1]
	}
	if p.Modulus != nil {
		g.Modulus = *p.Modulus
	}
	if p.MutationPolicy != nil {
		g.MutationPolicy = *p.MutationPolicy
	}
	if p.Selection != nil {
		g.Selection = *p.Selection
	}
	if p.Seed != nil {
		g.Seed = *p.Seed
	}
}
