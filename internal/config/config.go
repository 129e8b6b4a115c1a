package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/copyleftdev/genopt/internal/logging"
	"github.com/copyleftdev/genopt/internal/optimization"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging logging.Config
	NATS struct {
		// URL enables publishing of generation reports when set.
		URL     string `env:"NATS_URL"`
		Subject string `env:"NATS_SUBJECT" envDefault:"genopt.generations"`
		Name    string `env:"NATS_CLIENT_NAME" envDefault:"genopt"`
	}
	Metrics struct {
		Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	}
	Optimization struct {
		// MaxRuns caps the number of concurrently running optimizations.
		MaxRuns int `env:"OPT_MAX_RUNS" envDefault:"10"`
	}
	GA GA
}

// GA holds the default run settings. The service uses them as the base that
// request overrides are applied to; the CLI runs them as is.
type GA struct {
	Objective           string  `env:"GA_OBJECTIVE" envDefault:"damped-sine"`
	XMin                float64 `env:"GA_X_MIN" envDefault:"0"`
	XMax                float64 `env:"GA_X_MAX" envDefault:"2"`
	YMin                float64 `env:"GA_Y_MIN" envDefault:"-2"`
	YMax                float64 `env:"GA_Y_MAX" envDefault:"2"`
	Population          int     `env:"GA_POPULATION" envDefault:"4"`
	Generations         int     `env:"GA_GENERATIONS" envDefault:"1000"`
	MutationProbability float64 `env:"GA_MUTATION_PROBABILITY" envDefault:"0.3"`
	MutationLo          float64 `env:"GA_MUTATION_LO" envDefault:"-100"`
	MutationHi          float64 `env:"GA_MUTATION_HI" envDefault:"100"`
	Modulus             float64 `env:"GA_MODULUS" envDefault:"2"`
	MutationPolicy      string  `env:"GA_MUTATION_POLICY" envDefault:"coupled"`
	Selection           string  `env:"GA_SELECTION" envDefault:"truncation"`
	Seed                int64   `env:"GA_SEED" envDefault:"0"`

	// PresetFile names a YAML preset file; Preset selects one of its entries,
	// which then overrides the GA_* values above.
	PresetFile string `env:"GA_PRESET_FILE"`
	Preset     string `env:"GA_PRESET"`
}

// Settings converts the environment values into run settings.
func (g GA) Settings() optimization.Settings {
	return optimization.Settings{
		Domain: optimization.Domain{
			XMin: g.XMin, XMax: g.XMax,
			YMin: g.YMin, YMax: g.YMax,
		},
		PopulationSize:      g.Population,
		Generations:         g.Generations,
		MutationProbability: g.MutationProbability,
		MutationRange:       optimization.Range{Lo: g.MutationLo, Hi: g.MutationHi},
		Modulus:             g.Modulus,
		MutationPolicy:      optimization.MutationPolicy(g.MutationPolicy),
		Selection:           g.Selection,
		RandomSeed:          g.Seed,
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Logging.ResolveFormat(cfg.Environment)

	if cfg.GA.Preset != "" {
		if cfg.GA.PresetFile == "" {
			return nil, fmt.Errorf("GA_PRESET=%q requires GA_PRESET_FILE", cfg.GA.Preset)
		}
		presets, err := LoadPresets(cfg.GA.PresetFile)
		if err != nil {
			return nil, err
		}
		p, ok := presets[cfg.GA.Preset]
		if !ok {
			return nil, fmt.Errorf("preset %q not found in %s", cfg.GA.Preset, cfg.GA.PresetFile)
		}
		p.ApplyTo(&cfg.GA)
	}

	if cfg.Optimization.MaxRuns < 1 {
		return nil, fmt.Errorf("OPT_MAX_RUNS must be >= 1 (got %d)", cfg.Optimization.MaxRuns)
	}
	if err := cfg.GA.Settings().Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
