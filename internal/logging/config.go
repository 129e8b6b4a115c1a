package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Output encodings.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config selects the level, encoding and destination of the service logger.
// It is part of the application config and read from the environment.
type Config struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	// Format is json or console. Left empty, ResolveFormat picks one for the
	// deployment environment.
	Format string `env:"LOG_FORMAT"`
	// Output is stdout, stderr or a file path opened for appending.
	Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
}

// ResolveFormat fills an empty Format: console while developing, json
// everywhere else.
func (c *Config) ResolveFormat(environment string) {
	if c.Format != "" {
		return
	}
	if environment == "development" {
		c.Format = FormatConsole
		return
	}
	c.Format = FormatJSON
}

// NewLogger builds a Logger from cfg. A nil cfg logs JSON at info level to
// stderr. Unknown levels and formats are rejected.
func NewLogger(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(cfg.Format)
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatConsole:
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	output, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	return NewWithFormat(level, format, output), nil
}

// ParseLevel maps a level name to a LogLevel, ignoring case. An empty name
// means info.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return DebugLevel, nil
	case "", "INFO":
		return InfoLevel, nil
	case "WARN", "WARNING":
		return WarnLevel, nil
	case "ERROR":
		return ErrorLevel, nil
	case "FATAL":
		return FatalLevel, nil
	}
	return "", fmt.Errorf("logging: unknown level %q", name)
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open %s: %w", output, err)
	}
	return f, nil
}
