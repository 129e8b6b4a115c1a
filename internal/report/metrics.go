package report

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/copyleftdev/genopt/internal/optimization"
)

// Metrics holds the prometheus collectors shared by all runs.
type Metrics struct {
	generations *prometheus.CounterVec
	mutations   *prometheus.CounterVec
	runs        *prometheus.CounterVec
	bestFitness *prometheus.GaugeVec
	meanFitness *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genopt",
			Name:      "generations_total",
			Help:      "Generations completed, by objective.",
		}, []string{"objective"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genopt",
			Name:      "mutations_total",
			Help:      "Candidates mutated, by objective.",
		}, []string{"objective"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genopt",
			Name:      "runs_total",
			Help:      "Finished runs, by final status.",
		}, []string{"status"}),
		bestFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "genopt",
			Name:      "best_fitness",
			Help:      "Best fitness of the latest generation of a run.",
		}, []string{"run_id"}),
		meanFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "genopt",
			Name:      "mean_fitness",
			Help:      "Mean fitness of the latest generation of a run.",
		}, []string{"run_id"}),
	}

	for _, c := range []prometheus.Collector{m.generations, m.mutations, m.runs, m.bestFitness, m.meanFitness} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Reporter returns a reporter feeding the collectors for one run.
func (m *Metrics) Reporter(runID, objective string) optimization.Reporter {
	generations := m.generations.WithLabelValues(objective)
	mutations := m.mutations.WithLabelValues(objective)
	best := m.bestFitness.WithLabelValues(runID)
	mean := m.meanFitness.WithLabelValues(runID)

	return optimization.ReporterFunc(func(_ context.Context, g optimization.Generation) error {
		generations.Inc()
		mutations.Add(float64(g.Mutations))
		best.Set(g.Stats.Best)
		mean.Set(g.Stats.Mean)
		return nil
	})
}

// RunFinished counts a finished run and drops its per-run gauges.
func (m *Metrics) RunFinished(runID, status string) {
	m.runs.WithLabelValues(status).Inc()
	m.bestFitness.DeleteLabelValues(runID)
	m.meanFitness.DeleteLabelValues(runID)
}
