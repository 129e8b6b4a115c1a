// Package report contains the sinks a run hands its generations to: a
// textual listing, structured logs, prometheus metrics and NATS events.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/copyleftdev/genopt/internal/logging"
	"github.com/copyleftdev/genopt/internal/optimization"
)

// Multi fans a generation out to every reporter and joins their errors.
type Multi []optimization.Reporter

// Report implements optimization.Reporter.
func (m Multi) Report(ctx context.Context, g optimization.Generation) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(ctx, g); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Text writes the classic listing: a "Generation # i" header followed by one
// "x:\ty:\tfit:" line per candidate.
type Text struct {
	mu sync.Mutex
	w  io.Writer
}

// NewText returns a Text reporter writing to w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

// Report implements optimization.Reporter.
func (t *Text) Report(_ context.Context, g optimization.Generation) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := fmt.Fprintf(t.w, "Generation # %d\n", g.Index); err != nil {
		return err
	}
	for _, c := range g.Population {
		if _, err := fmt.Fprintf(t.w, "x:%.6g\ty:%.6g\tfit:%.6g\n", c.X(), c.Y(), c.Fitness()); err != nil {
			return err
		}
	}
	return nil
}

// Log writes a debug entry per generation.
type Log struct {
	logger *logging.Logger
}

// NewLog returns a Log reporter.
func NewLog(logger *logging.Logger) *Log {
	return &Log{logger: logger}
}

// Report implements optimization.Reporter.
func (l *Log) Report(_ context.Context, g optimization.Generation) error {
	if !l.logger.Enabled(logging.DebugLevel) {
		return nil
	}
	fields := map[string]interface{}{
		"generation":   g.Index,
		"best_fitness": g.Stats.Best,
		"mean_fitness": g.Stats.Mean,
		"std_fitness":  g.Stats.StdDev,
		"mutations":    g.Mutations,
	}
	if len(g.Population) > 0 {
		fields["best_x"] = g.Population[0].X()
		fields["best_y"] = g.Population[0].Y()
	}
	l.logger.Debug("Generation selected", fields)
	return nil
}
