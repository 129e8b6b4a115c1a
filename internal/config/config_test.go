package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/genopt/internal/optimization"
)

const presetPath = "../../configs/presets.yaml"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format, "development logs are human readable")
	assert.Equal(t, "genopt.generations", cfg.NATS.Subject)
	assert.Empty(t, cfg.NATS.URL)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "damped-sine", cfg.GA.Objective)

	// The environment defaults match the library defaults.
	assert.Equal(t, optimization.DefaultSettings(), cfg.GA.Settings())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("GA_POPULATION", "6")
	t.Setenv("GA_MUTATION_LO", "-5")
	t.Setenv("GA_MUTATION_HI", "5")
	t.Setenv("GA_MODULUS", "1")
	t.Setenv("GA_SELECTION", "top-two")
	t.Setenv("GA_SEED", "17")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	s := cfg.GA.Settings()
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 6, s.PopulationSize)
	assert.Equal(t, optimization.Range{Lo: -5, Hi: 5}, s.MutationRange)
	assert.Equal(t, 1.0, s.Modulus)
	assert.Equal(t, optimization.SelectionTopTwo, s.Selection)
	assert.Equal(t, int64(17), s.RandomSeed)
}

func TestLoadLogFormat(t *testing.T) {
	t.Setenv("ENV", "production")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Logging.Format)

	t.Setenv("LOG_FORMAT", "console")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := map[string]string{
		"GA_X_MAX":           "0",
		"GA_MODULUS":         "0",
		"GA_MUTATION_POLICY": "gaussian",
		"GA_X_MIN":           "-Inf",
		"OPT_MAX_RUNS":       "0",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadPresets(t *testing.T) {
	presets, err := LoadPresets(presetPath)
	require.NoError(t, err)

	for _, name := range []string{"reference", "narrow", "medium", "top-two", "independent"} {
		assert.Contains(t, presets, name)
	}

	ga := GA{}
	presets["reference"].ApplyTo(&ga)
	assert.Equal(t, optimization.DefaultSettings(), ga.Settings())
}

func TestLoadWithPreset(t *testing.T) {
	t.Setenv("GA_PRESET_FILE", presetPath)
	t.Setenv("GA_PRESET", "narrow")
	t.Setenv("GA_GENERATIONS", "25")

	cfg, err := Load()
	require.NoError(t, err)

	s := cfg.GA.Settings()
	assert.Equal(t, optimization.Range{Lo: -2, Hi: 2}, s.MutationRange)
	assert.Equal(t, 1.0, s.Modulus)
	assert.Equal(t, 25, s.Generations, "fields the preset leaves unset keep their env value")
}

func TestLoadPresetErrors(t *testing.T) {
	t.Run("unknown preset", func(t *testing.T) {
		t.Setenv("GA_PRESET_FILE", presetPath)
		t.Setenv("GA_PRESET", "missing")
		_, err := Load()
		assert.ErrorContains(t, err, "not found")
	})

	t.Run("preset without file", func(t *testing.T) {
		t.Setenv("GA_PRESET", "narrow")
		_, err := Load()
		assert.ErrorContains(t, err, "GA_PRESET_FILE")
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "presets.yaml")
		require.NoError(t, os.WriteFile(path, []byte("presets: {}\n"), 0o644))
		_, err := LoadPresets(path)
		assert.Error(t, err)
	})

	t.Run("preset yields invalid settings", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "presets.yaml")
		require.NoError(t, os.WriteFile(path, []byte("presets:\n  broken:\n    modulus: -1\n"), 0o644))
		t.Setenv("GA_PRESET_FILE", path)
		t.Setenv("GA_PRESET", "broken")
		_, err := Load()
		assert.ErrorIs(t, err, optimization.ErrInvalidSettings)
	})
}
