package simulator

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"k8s.io/klog"

	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
)

// CostModel samples the execution cost of a task on a machine type.
type CostModel interface {
	SampleCost(task *api.TaskInfo, machineType string, rng *rand.Rand) (float64, error)
}

// coverage is implemented by cost models that can tell upfront which machine types they
// know about.
type coverage interface {
	Require(machineTypes []string) error
}

// Simulator computes the cost vector of placements over a fixed task graph and machine
// catalog. It holds no per-simulation state and may be used from several goroutines.
type Simulator struct {
	graph   *api.TaskGraph
	catalog *api.MachineCatalog
	model   CostModel

	seedMutex sync.Mutex
	seeds     *rand.Rand
}

// NewSimulator returns a simulator. It fails with ErrModelMissing when model does not
// cover every machine type of the catalog.
func NewSimulator(graph *api.TaskGraph, catalog *api.MachineCatalog, model CostModel) (*Simulator, error) {
	if c, ok := model.(coverage); ok {
		if err := c.Require(catalog.TypeNames()); err != nil {
			return nil, err
		}
	}

	return &Simulator{
		graph:   graph,
		catalog: catalog,
		model:   model,
		seeds:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// SetSeedSource makes the seeds drawn by SimulateRandom reproducible.
func (s *Simulator) SetSeedSource(seed int64) {
	s.seedMutex.Lock()
	defer s.seedMutex.Unlock()

	s.seeds = rand.New(rand.NewSource(seed))
}

func (s *Simulator) Graph() *api.TaskGraph {
	return s.graph
}

func (s *Simulator) Catalog() *api.MachineCatalog {
	return s.catalog
}

// NextSeed draws a fresh simulation seed.
func (s *Simulator) NextSeed() int64 {
	s.seedMutex.Lock()
	defer s.seedMutex.Unlock()

	return s.seeds.Int63()
}

// SimulateRandom simulates p with a fresh seed, recorded in the returned state so the run
// can be replayed with Simulate.
func (s *Simulator) SimulateRandom(p api.Placement) (*api.SimulationState, error) {
	return s.Simulate(p, s.NextSeed())
}

// Simulate runs the tasks of the graph in topological order on the machines p assigns
// them to. A task starts once all its predecessors completed, a slot of its machine is
// free and the tasks already running there leave room for its demand; its duration is
// drawn from the cost model with a source seeded by seed.
func (s *Simulator) Simulate(p api.Placement, seed int64) (*api.SimulationState, error) {
	if err := p.Validate(s.graph, s.catalog); err != nil {
		return nil, err
	}
	demands := make([]*api.ResourceInfo, s.graph.Len())
	for i := 0; i < s.graph.Len(); i++ {
		task := s.graph.Task(i)
		mt := s.catalog.Machine(p[i]).Type
		demands[i] = task.Demand.Restrict(mt.Capacity)
		if !demands[i].LessEqual(mt.Capacity) {
			return nil, errors.Wrapf(api.ErrInvalidPlacement, "task %q demand <%v> exceeds capacity <%v> of machine %q",
				task.ID, task.Demand, mt.Capacity, s.catalog.Machine(p[i]).ID)
		}
	}

	rng := rand.New(rand.NewSource(seed))

	// lanes[m][l] is the time slot l of machine m becomes free.
	lanes := make([][]float64, s.catalog.Len())
	for m := range lanes {
		lanes[m] = make([]float64, s.catalog.Machine(m).Type.Slots)
	}
	running := make([][]interval, s.catalog.Len())
	busy := make([]float64, s.catalog.Len())
	finish := make([]float64, s.graph.Len())

	state := &api.SimulationState{
		Seed:  seed,
		Costs: make(map[string]float64, len(api.Objectives)),
		Tasks: make([]api.TaskTiming, s.graph.Len()),
	}

	var makespan, cost, energy, waste float64
	for _, i := range s.graph.Order() {
		task := s.graph.Task(i)
		machine := s.catalog.Machine(p[i])

		duration, err := s.model.SampleCost(task, machine.Type.Name, rng)
		if err != nil {
			return nil, errors.Wrapf(err, "sampling task %q on machine %q", task.ID, machine.ID)
		}
		if duration < 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
			return nil, errors.Errorf("sampled duration %v of task %q on machine %q is not a valid time", duration, task.ID, machine.ID)
		}

		ready := 0.0
		for _, pred := range task.Predecessors {
			ready = math.Max(ready, finish[pred])
		}

		lane := earliestLane(lanes[machine.Index])
		start := earliestFit(running[machine.Index], machine.Type.Capacity, demands[i],
			math.Max(ready, lanes[machine.Index][lane]), duration)

		end := start + duration
		finish[i] = end
		lanes[machine.Index][lane] = end
		running[machine.Index] = append(running[machine.Index], interval{start: start, end: end, demand: demands[i]})
		busy[machine.Index] += duration

		makespan = math.Max(makespan, end)
		cost += duration * machine.Type.CostPerTime
		energy += duration * machine.Type.EnergyPerTime
		waste += duration * unusedFraction(task.Demand, machine.Type.Capacity)

		state.Tasks[i] = api.TaskTiming{
			TaskID:    task.ID,
			MachineID: machine.ID,
			Start:     start,
			Duration:  duration,
			End:       end,
		}
	}

	state.Costs[api.ObjectiveMakespan] = makespan
	state.Costs[api.ObjectiveCost] = cost
	state.Costs[api.ObjectiveEnergy] = energy
	state.Costs[api.ObjectiveWaste] = waste
	if len(busy) > 1 {
		state.Imbalance = stat.PopStdDev(busy, nil)
	}

	klog.V(5).Infof("Simulated placement with seed %d: makespan %.3f, cost %.3f", seed, makespan, cost)

	return state, nil
}

// earliestLane returns the slot that frees up first, the lowest index on ties.
func earliestLane(lanes []float64) int {
	best := 0
	for l := 1; l < len(lanes); l++ {
		if lanes[l] < lanes[best] {
			best = l
		}
	}
	return best
}

// interval is a task occupying part of a machine over [start, end).
type interval struct {
	start, end float64
	demand     *api.ResourceInfo
}

// earliestFit returns the first time, no earlier than from, at which demand fits next to
// the running intervals for duration. Capacity only frees up when an interval ends, so
// those ends are the only candidates after from.
func earliestFit(running []interval, capacity, demand *api.ResourceInfo, from, duration float64) float64 {
	candidates := []float64{from}
	for _, iv := range running {
		if iv.end > from {
			candidates = append(candidates, iv.end)
		}
	}
	sort.Float64s(candidates)

	for _, t := range candidates {
		if fitsDuring(running, capacity, demand, t, t+duration) {
			return t
		}
	}
	// Past the last end nothing runs, and demand fits an idle machine.
	return candidates[len(candidates)-1]
}

// fitsDuring checks demand against the free capacity at t and at every start inside
// (t, end), the only points where usage can grow.
func fitsDuring(running []interval, capacity, demand *api.ResourceInfo, t, end float64) bool {
	points := []float64{t}
	for _, iv := range running {
		if iv.start > t && iv.start < end {
			points = append(points, iv.start)
		}
	}

	for _, x := range points {
		used := api.EmptyResource()
		for _, iv := range running {
			if iv.start <= x && x < iv.end {
				used.Add(iv.demand)
			}
		}
		free := capacity.Clone().Sub(used)
		if !demand.LessEqual(free) {
			return false
		}
	}
	return true
}

// unusedFraction is the mean share of the declared capacity a task leaves idle.
func unusedFraction(demand, capacity *api.ResourceInfo) float64 {
	total, n := 0.0, 0
	for _, rName := range capacity.ResourceNames() {
		c := capacity.Get(rName)
		if c <= 0 {
			continue
		}
		total += math.Max(0, 1-demand.Get(rName)/c)
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}
