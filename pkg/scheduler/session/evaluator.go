package session

import (
	"context"
	"math"
	"time"

	"k8s.io/client-go/util/workqueue"
	"k8s.io/klog"

	"github.com/qed-usc/placement-optimizer/pkg/metrics"
)

type populationEvaluator struct {
	ssn         *Session
	individuals []*Individual
	seeds       []int64
}

// newPopulationEvaluator draws the seed of every individual up front so results do not
// depend on the order workers pick individuals.
func newPopulationEvaluator(ssn *Session, individuals []*Individual) *populationEvaluator {
	seeds := make([]int64, len(individuals))
	for i := range seeds {
		seeds[i] = ssn.rng.Int63()
	}

	return &populationEvaluator{
		ssn:         ssn,
		individuals: individuals,
		seeds:       seeds,
	}
}

// EvaluateAll simulates every individual and returns once all are done.
func (pe *populationEvaluator) EvaluateAll() {
	workqueue.ParallelizeUntil(context.TODO(), pe.ssn.workers, len(pe.individuals), pe.evaluate)
}

func (pe *populationEvaluator) evaluate(index int) {
	ind := pe.individuals[index]
	state, err := pe.ssn.evaluator.Simulate(ind.Placement, pe.seeds[index])
	if err != nil {
		ind.State, ind.Err = nil, err
		return
	}
	ind.State, ind.Err = state, nil
}

// Evaluate simulates the population and scores it with the session policy. From Selected,
// the survivors are evaluated again. Failed simulations get MinimalFitness; they never
// abort the generation. Evaluation always covers the whole population.
func (ssn *Session) Evaluate() error {
	if err := ssn.expectPhase("evaluate", Populated, Selected); err != nil {
		return err
	}
	if ssn.phase == Selected {
		ssn.Population = ssn.Survivors
		ssn.Survivors = nil
	}

	start := time.Now()
	newPopulationEvaluator(ssn, ssn.Population).EvaluateAll()

	costs := make([]map[string]float64, len(ssn.Population))
	for i, ind := range ssn.Population {
		if ind.Err == nil {
			costs[i] = ind.State.Costs
		}
	}
	scores := ssn.policy.Score(costs, ssn.weights)

	failed := 0
	sum, succeeded := 0.0, 0
	for i, ind := range ssn.Population {
		if ind.Err != nil {
			failed++
			ind.Fitness = MinimalFitness
			klog.Warningf("Session %v: individual %d of generation <%d> failed: %v", ssn.UID, i, ssn.generation, ind.Err)
			continue
		}
		ind.Fitness = scores[i]
		if math.IsNaN(ind.Fitness) || math.IsInf(ind.Fitness, 0) {
			ind.Fitness = MinimalFitness
			continue
		}
		sum += ind.Fitness
		succeeded++
	}

	ssn.evaluated = ssn.Population
	best := rank(ssn.evaluated)[0]
	if ssn.best == nil || better(best, ssn.best) {
		if ssn.best != nil {
			klog.V(4).Infof("Session %v: new best fitness %v moves <%d> tasks", ssn.UID, best.Fitness,
				len(best.Placement.Diff(ssn.best.Placement)))
		}
		ssn.best = best.clone()
	}

	mean := MinimalFitness
	if succeeded > 0 {
		mean = sum / float64(succeeded)
	}
	ssn.bestFitness = append(ssn.bestFitness, best.Fitness)
	ssn.meanFitness = append(ssn.meanFitness, mean)
	ssn.evaluations += len(ssn.Population)
	ssn.failures += failed
	ssn.phase = Evaluated

	metrics.ObserveEvaluation(len(ssn.Population), failed, best.Fitness, time.Since(start))
	klog.V(3).Infof("Session %v: evaluated generation <%d>: best %v, mean %v, <%d> failed",
		ssn.UID, ssn.generation, best.Fitness, mean, failed)
	return nil
}
