package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const subsysOptimizer string = "placement_optimizer"

var (
	evaluationDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Subsystem: subsysOptimizer,
		Name:      "evaluation_seconds",
		Help:      "Time to simulate a whole population, from the first dispatched individual to the generation barrier.",
	})

	generationDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Subsystem: subsysOptimizer,
		Name:      "generation_seconds",
		Help:      "Time of one breed, evaluate and select round.",
	})

	generationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsysOptimizer,
		Name:      "generations_total",
		Help:      "Number of generations completed.",
	})

	simulationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsysOptimizer,
		Name:      "simulations_total",
		Help:      "Number of placements simulated.",
	})

	// Absorbed failures, scored with the minimal fitness.
	failedSimulationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsysOptimizer,
		Name:      "failed_simulations_total",
		Help:      "Number of placements whose simulation failed.",
	})

	bestFitness = prometheus.NewGauge(prometheus.GaugeOpts{
		Subsystem: subsysOptimizer,
		Name:      "best_fitness",
		Help:      "Fitness of the best individual of the last evaluated population.",
	})

	populationSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Subsystem: subsysOptimizer,
		Name:      "population_size",
		Help:      "Number of individuals in the last evaluated population.",
	})
)

var registerOnce sync.Once

// Register registers the optimizer metrics with the default registry. It is safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(evaluationDuration, generationDuration)
		prometheus.MustRegister(generationsTotal, simulationsTotal, failedSimulationsTotal)
		prometheus.MustRegister(bestFitness, populationSize)
	})
}

// ObserveEvaluation records one evaluated population.
func ObserveEvaluation(simulations, failed int, best float64, duration time.Duration) {
	simulationsTotal.Add(float64(simulations))
	failedSimulationsTotal.Add(float64(failed))
	populationSize.Set(float64(simulations))
	bestFitness.Set(best)
	evaluationDuration.Observe(duration.Seconds())
}
