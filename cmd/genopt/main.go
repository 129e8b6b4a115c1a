// Command genopt runs one optimization with the GA_* environment settings and
// prints every selected generation to stdout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/copyleftdev/genopt/internal/config"
	"github.com/copyleftdev/genopt/internal/logging"
	"github.com/copyleftdev/genopt/internal/optimization/genetic"
	"github.com/copyleftdev/genopt/internal/optimization/objectives"
	"github.com/copyleftdev/genopt/internal/report"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "genopt: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync()

	objective, err := objectives.Get(cfg.GA.Objective)
	if err != nil {
		return err
	}

	runLogger := logger.WithField("objective", cfg.GA.Objective)
	reporters := report.Multi{report.NewText(os.Stdout), report.NewLog(runLogger)}

	if cfg.NATS.URL != "" {
		nc, err := report.ConnectNATS(cfg.NATS.URL, cfg.NATS.Name)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer nc.Drain()
		reporters = append(reporters, report.NewNATS(nc, cfg.NATS.Subject, "cli", cfg.GA.Objective))
	}

	optimizer, err := genetic.NewGeneticOptimizer(objective, cfg.GA.Settings(),
		genetic.WithReporter(reporters),
		genetic.WithLogger(logging.NewZapLogger(runLogger)),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := optimizer.Optimize(ctx)
	if err != nil {
		return err
	}

	runLogger.Info("Optimization finished", map[string]interface{}{
		"generations":  result.Generations,
		"mutations":    result.Mutations,
		"best_x":       result.Best.X(),
		"best_y":       result.Best.Y(),
		"best_fitness": result.Best.Fitness(),
	})
	return nil
}
