package session

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/uuid"
	"k8s.io/klog"

	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
)

// MinimalFitness is assigned to individuals whose simulation failed.
const MinimalFitness = -math.MaxFloat64

// Evaluator simulates placements over a fixed graph and catalog.
type Evaluator interface {
	Graph() *api.TaskGraph
	Catalog() *api.MachineCatalog
	Simulate(p api.Placement, seed int64) (*api.SimulationState, error)
}

// Individual is one candidate placement of the population.
type Individual struct {
	Placement api.Placement
	Fitness   float64
	State     *api.SimulationState
	// Err is set when the simulation of Placement failed.
	Err error
}

func (ind *Individual) clone() *Individual {
	return &Individual{
		Placement: ind.Placement.Clone(),
		Fitness:   ind.Fitness,
		State:     ind.State,
		Err:       ind.Err,
	}
}

// imbalance breaks fitness ties; failed individuals rank last.
func (ind *Individual) imbalance() float64 {
	if ind.State == nil {
		return math.Inf(1)
	}
	return ind.State.Imbalance
}

// Options tunes a session.
type Options struct {
	// Seed feeds every random decision of the session.
	Seed int64
	// Workers bounds the number of concurrent simulations. Zero means one per CPU.
	Workers int
}

// Session holds the state of one optimization run. Sessions share nothing, so several
// may run side by side.
type Session struct {
	UID types.UID

	evaluator Evaluator
	policy    Policy
	weights   map[string]float64
	rng       *rand.Rand
	workers   int

	phase      Phase
	generation int

	Population []*Individual
	Survivors  []*Individual

	// evaluated is the last evaluated population, kept across selection and breeding.
	evaluated []*Individual
	best      *Individual

	bestFitness []float64
	meanFitness []float64
	evaluations int
	failures    int
}

func OpenSession(evaluator Evaluator, policy Policy, weights map[string]float64, opt Options) *Session {
	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ssn := &Session{
		UID:       uuid.NewUUID(),
		evaluator: evaluator,
		policy:    policy,
		weights:   weights,
		rng:       rand.New(rand.NewSource(opt.Seed)),
		workers:   workers,
		phase:     Uninitialized,
	}

	klog.V(3).Infof("Open Session %v with <%d> tasks on <%d> machines, policy <%s>",
		ssn.UID, evaluator.Graph().Len(), evaluator.Catalog().Len(), policy.Name())

	return ssn
}

func (ssn *Session) Phase() Phase {
	return ssn.phase
}

func (ssn *Session) Generation() int {
	return ssn.generation
}

// CreatePopulation fills the population with size random placements, each task on a
// uniformly chosen machine instance.
func (ssn *Session) CreatePopulation(size int) error {
	if err := ssn.expectPhase("create population", Uninitialized); err != nil {
		return err
	}
	if size < 1 {
		return errors.Wrapf(api.ErrInvalidConfig, "population size %d must be at least 1", size)
	}

	tasks, machines := ssn.evaluator.Graph().Len(), ssn.evaluator.Catalog().Len()
	ssn.Population = make([]*Individual, size)
	for i := range ssn.Population {
		p := api.NewPlacement(tasks)
		for t := range p {
			p[t] = ssn.rng.Intn(machines)
		}
		ssn.Population[i] = &Individual{Placement: p}
	}

	ssn.phase = Populated
	klog.V(3).Infof("Session %v: created population of <%d> individuals", ssn.UID, size)
	return nil
}

// RankSelection keeps k survivors. The best individual always survives; the other k-1 are
// drawn without replacement with weights decreasing linearly with rank.
func (ssn *Session) RankSelection(k int) error {
	if err := ssn.expectPhase("rank selection", Evaluated); err != nil {
		return err
	}
	n := len(ssn.Population)
	if k < 1 || k > n {
		return errors.Wrapf(api.ErrInvalidConfig, "cannot select %d survivors from %d individuals", k, n)
	}

	ranked := rank(ssn.Population)
	picked := weightedSample(ssn.rng, rankWeights(n)[1:], k-1)

	survivors := make([]*Individual, 0, k)
	survivors = append(survivors, ranked[0])
	for _, i := range picked {
		survivors = append(survivors, ranked[i+1])
	}

	ssn.Survivors = survivors
	ssn.phase = Selected
	klog.V(3).Infof("Session %v: selected <%d> of <%d> individuals in generation <%d>",
		ssn.UID, k, n, ssn.generation)
	return nil
}

// CreateNewPopulation breeds size offspring from the survivors with uniform crossover, then
// changes exactly mutations genes across the offspring, each to a different machine.
func (ssn *Session) CreateNewPopulation(size, mutations int) error {
	if err := ssn.expectPhase("create new population", Selected); err != nil {
		return err
	}
	tasks, machines := ssn.evaluator.Graph().Len(), ssn.evaluator.Catalog().Len()
	if err := validateBreeding(size, mutations, tasks, machines); err != nil {
		return err
	}

	weights := rankWeights(len(ssn.Survivors))
	offspring := make([]*Individual, size)
	for i := range offspring {
		p1 := ssn.Survivors[pickWeighted(ssn.rng, weights)]
		p2 := ssn.Survivors[pickWeighted(ssn.rng, weights)]
		offspring[i] = &Individual{Placement: crossover(ssn.rng, p1.Placement, p2.Placement)}
	}

	for _, pos := range choosePositions(ssn.rng, size*tasks, mutations) {
		mutate(ssn.rng, offspring[pos/tasks].Placement, pos%tasks, machines)
	}

	ssn.Population = offspring
	ssn.Survivors = nil
	ssn.generation++
	ssn.phase = Populated
	klog.V(3).Infof("Session %v: bred <%d> individuals with <%d> mutations for generation <%d>",
		ssn.UID, size, mutations, ssn.generation)
	return nil
}

// CheckBreeding fails with ErrInvalidConfig when CreateNewPopulation(size, mutations)
// could never succeed for this session.
func (ssn *Session) CheckBreeding(size, mutations int) error {
	return validateBreeding(size, mutations, ssn.evaluator.Graph().Len(), ssn.evaluator.Catalog().Len())
}

// SelectStronger returns a copy of the best individual of the last evaluated population.
func (ssn *Session) SelectStronger() (*Individual, error) {
	if len(ssn.evaluated) == 0 {
		return nil, errors.Wrap(api.ErrInvalidState, "no population has been evaluated yet")
	}
	return rank(ssn.evaluated)[0].clone(), nil
}

// Terminate ends the session. Only read operations are accepted afterwards.
func (ssn *Session) Terminate() {
	if ssn.phase != Terminated {
		klog.V(3).Infof("Close Session %v after <%d> generations", ssn.UID, ssn.generation)
	}
	ssn.phase = Terminated
}

// OptimizationState summarises a session for persistence.
type OptimizationState struct {
	UID         types.UID          `json:"uid"`
	Generation  int                `json:"generation"`
	Phase       Phase              `json:"phase"`
	Policy      string             `json:"policy"`
	Weights     map[string]float64 `json:"weights,omitempty"`
	BestFitness []float64          `json:"bestFitness"`
	MeanFitness []float64          `json:"meanFitness"`
	Evaluations int                `json:"evaluations"`
	Failures    int                `json:"failures"`

	// The best individual evaluated so far, across all generations.
	Fitness       float64            `json:"fitness"`
	BestPlacement map[string]string  `json:"bestPlacement,omitempty"`
	BestCosts     map[string]float64 `json:"bestCosts,omitempty"`
}

// GetOptimizationState returns a snapshot of the session. It does not change the session.
func (ssn *Session) GetOptimizationState() *OptimizationState {
	state := &OptimizationState{
		UID:         ssn.UID,
		Generation:  ssn.generation,
		Phase:       ssn.phase,
		Policy:      ssn.policy.Name(),
		Weights:     ssn.weights,
		BestFitness: append([]float64(nil), ssn.bestFitness...),
		MeanFitness: append([]float64(nil), ssn.meanFitness...),
		Evaluations: ssn.evaluations,
		Failures:    ssn.failures,
		Fitness:     MinimalFitness,
	}
	if ssn.best != nil {
		state.Fitness = ssn.best.Fitness
		state.BestPlacement = ssn.best.Placement.ToMap(ssn.evaluator.Graph(), ssn.evaluator.Catalog())
		if ssn.best.State != nil {
			state.BestCosts = ssn.best.State.Costs
		}
	}
	return state
}

// Best returns a copy of the best individual evaluated so far, or nil.
func (ssn *Session) Best() *Individual {
	if ssn.best == nil {
		return nil
	}
	return ssn.best.clone()
}

func (ssn *Session) expectPhase(op string, phases ...Phase) error {
	for _, p := range phases {
		if ssn.phase == p {
			return nil
		}
	}
	return errors.Wrapf(api.ErrInvalidState, "cannot %s in phase %v", op, ssn.phase)
}

// String returns the population of the session.
func (ssn Session) String() string {
	msg := fmt.Sprintf("Session %v (generation %d, %v): \n", ssn.UID, ssn.generation, ssn.phase)

	for _, ind := range ssn.Population {
		msg = fmt.Sprintf("%s%v fitness %v\n", msg, ind.Placement, ind.Fitness)
	}

	return msg
}

// rank returns individuals ordered best first: fitness descending, then imbalance
// ascending, then original position.
func rank(individuals []*Individual) []*Individual {
	ranked := make([]*Individual, len(individuals))
	copy(ranked, individuals)
	sort.SliceStable(ranked, func(i, j int) bool {
		return better(ranked[i], ranked[j])
	})
	return ranked
}

func better(a, b *Individual) bool {
	if a.Fitness != b.Fitness {
		return a.Fitness > b.Fitness
	}
	return a.imbalance() < b.imbalance()
}
