package session

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	placementapi "github.com/qed-usc/placement-optimizer/pkg/apis/placement"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
	"github.com/qed-usc/placement-optimizer/pkg/simulator"
)

// speedModel makes every task take its machine type's duration, with some noise.
type speedModel map[string]float64

func (m speedModel) SampleCost(_ *api.TaskInfo, machineType string, rng *rand.Rand) (float64, error) {
	return m[machineType] * (1 + 0.1*rng.Float64()), nil
}

// makespanPolicy scores -makespan.
type makespanPolicy struct{}

func (makespanPolicy) Name() string { return "test-makespan" }
func (makespanPolicy) Initialize(arguments map[string]string) error { return nil }
func (makespanPolicy) Score(costs []map[string]float64, _ map[string]float64) []float64 {
	scores := make([]float64, len(costs))
	for i, c := range costs {
		if c != nil {
			scores[i] = -c[api.ObjectiveMakespan]
		}
	}
	return scores
}

// flatPolicy gives every individual the same fitness.
type flatPolicy struct{}

func (flatPolicy) Name() string { return "test-flat" }
func (flatPolicy) Initialize(arguments map[string]string) error { return nil }
func (flatPolicy) Score(costs []map[string]float64, _ map[string]float64) []float64 {
	return make([]float64, len(costs))
}

// failingEvaluator rejects every placement putting the first task on the first machine.
type failingEvaluator struct {
	*simulator.Simulator
}

func (e failingEvaluator) Simulate(p api.Placement, seed int64) (*api.SimulationState, error) {
	if p[0] == 0 {
		return nil, api.ErrInvalidPlacement
	}
	return e.Simulator.Simulate(p, seed)
}

func buildSimulator(t *testing.T, tasks int) *simulator.Simulator {
	spec := &placementapi.GraphSpec{}
	for i := 0; i < tasks; i++ {
		ts := placementapi.TaskSpec{ID: string(rune('a' + i))}
		if i > 0 && i%3 == 0 {
			ts.Predecessors = []string{string(rune('a' + i - 1))}
		}
		spec.Tasks = append(spec.Tasks, ts)
	}
	graph, err := api.NewTaskGraph(spec, nil)
	require.NoError(t, err)

	catalog, err := api.NewMachineCatalog(&placementapi.CatalogSpec{Types: []placementapi.MachineTypeSpec{
		{Name: "fast", CostPerTime: 4, Count: 2},
		{Name: "slow", CostPerTime: 1, Count: 2},
	}})
	require.NoError(t, err)

	sim, err := simulator.NewSimulator(graph, catalog, speedModel{"fast": 1, "slow": 3})
	require.NoError(t, err)
	return sim
}

func openTestSession(t *testing.T, seed int64) *Session {
	return OpenSession(buildSimulator(t, 6), makespanPolicy{}, nil, Options{Seed: seed, Workers: 4})
}

func TestRankSelectionKeepsBest(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
	}{
		{"makespan", makespanPolicy{}},
		{"all ties", flatPolicy{}},
	}

	for _, test := range tests {
		for seed := int64(0); seed < 10; seed++ {
			ssn := OpenSession(buildSimulator(t, 6), test.policy, nil, Options{Seed: seed})
			require.NoError(t, ssn.CreatePopulation(5))
			require.NoError(t, ssn.Evaluate())

			best, err := ssn.SelectStronger()
			require.NoError(t, err)

			require.NoError(t, ssn.RankSelection(2))
			assert.Len(t, ssn.Survivors, 2, test.name)
			assert.Equal(t, best.Fitness, ssn.Survivors[0].Fitness, test.name)
			assert.Equal(t, best.Placement, ssn.Survivors[0].Placement, test.name)
			assert.NotSame(t, ssn.Survivors[0], ssn.Survivors[1], test.name)
		}
	}
}

func TestInvalidConfig(t *testing.T) {
	ssn := openTestSession(t, 1)
	assert.True(t, errors.Is(ssn.CreatePopulation(0), api.ErrInvalidConfig))

	require.NoError(t, ssn.CreatePopulation(4))
	require.NoError(t, ssn.Evaluate())
	assert.True(t, errors.Is(ssn.RankSelection(0), api.ErrInvalidConfig))
	assert.True(t, errors.Is(ssn.RankSelection(5), api.ErrInvalidConfig))
	require.NoError(t, ssn.RankSelection(4))

	tests := []struct {
		name      string
		size      int
		mutations int
	}{
		{"empty population", 0, 0},
		{"negative mutations", 4, -1},
		{"more mutations than genes", 2, 13},
	}
	for _, test := range tests {
		assert.True(t, errors.Is(ssn.CreateNewPopulation(test.size, test.mutations), api.ErrInvalidConfig), test.name)
	}
	assert.Equal(t, Selected, ssn.Phase())
	assert.NoError(t, ssn.CreateNewPopulation(2, 12))
}

func TestMutationNeedsTwoMachines(t *testing.T) {
	graph, err := api.NewTaskGraph(&placementapi.GraphSpec{Tasks: []placementapi.TaskSpec{{ID: "a"}}}, nil)
	require.NoError(t, err)
	catalog, err := api.NewMachineCatalog(&placementapi.CatalogSpec{Types: []placementapi.MachineTypeSpec{{Name: "only"}}})
	require.NoError(t, err)
	sim, err := simulator.NewSimulator(graph, catalog, speedModel{"only": 1})
	require.NoError(t, err)

	ssn := OpenSession(sim, makespanPolicy{}, nil, Options{Seed: 1})
	require.NoError(t, ssn.CreatePopulation(3))
	require.NoError(t, ssn.Evaluate())
	require.NoError(t, ssn.RankSelection(2))
	assert.True(t, errors.Is(ssn.CreateNewPopulation(3, 1), api.ErrInvalidConfig))
	assert.NoError(t, ssn.CreateNewPopulation(3, 0))
}

func TestInvalidState(t *testing.T) {
	ssn := openTestSession(t, 1)

	_, err := ssn.SelectStronger()
	assert.True(t, errors.Is(err, api.ErrInvalidState))
	assert.True(t, errors.Is(ssn.Evaluate(), api.ErrInvalidState))
	assert.True(t, errors.Is(ssn.RankSelection(1), api.ErrInvalidState))
	assert.True(t, errors.Is(ssn.CreateNewPopulation(1, 0), api.ErrInvalidState))

	require.NoError(t, ssn.CreatePopulation(3))
	assert.True(t, errors.Is(ssn.CreatePopulation(3), api.ErrInvalidState))
	assert.True(t, errors.Is(ssn.RankSelection(1), api.ErrInvalidState))

	require.NoError(t, ssn.Evaluate())
	assert.True(t, errors.Is(ssn.Evaluate(), api.ErrInvalidState))
	assert.True(t, errors.Is(ssn.CreateNewPopulation(3, 0), api.ErrInvalidState))

	require.NoError(t, ssn.RankSelection(2))
	require.NoError(t, ssn.CreateNewPopulation(3, 1))
	assert.Equal(t, 1, ssn.Generation())

	// The previous population stays available while the new one is not evaluated yet.
	_, err = ssn.SelectStronger()
	assert.NoError(t, err)

	ssn.Terminate()
	assert.Equal(t, Terminated, ssn.Phase())
	assert.True(t, errors.Is(ssn.Evaluate(), api.ErrInvalidState))
	assert.Equal(t, Terminated, ssn.GetOptimizationState().Phase)
}

func TestEvaluateFromSelected(t *testing.T) {
	ssn := openTestSession(t, 3)
	require.NoError(t, ssn.CreatePopulation(6))
	require.NoError(t, ssn.Evaluate())
	require.NoError(t, ssn.RankSelection(3))

	require.NoError(t, ssn.Evaluate())
	assert.Len(t, ssn.Population, 3)
	assert.Equal(t, Evaluated, ssn.Phase())
	assert.Equal(t, 9, ssn.GetOptimizationState().Evaluations)
}

func TestCrossoverGenesComeFromParents(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p1 := api.Placement{0, 0, 0, 0, 0, 0, 0, 0}
	p2 := api.Placement{1, 2, 3, 1, 2, 3, 1, 2}

	for i := 0; i < 50; i++ {
		child := crossover(rng, p1, p2)
		for g := range child {
			assert.Contains(t, []int{p1[g], p2[g]}, child[g])
		}
	}
}

func TestMutationCountIsExact(t *testing.T) {
	tests := []struct {
		size      int
		mutations int
	}{
		{5, 0},
		{5, 1},
		{5, 7},
		{3, 18},
	}

	for _, test := range tests {
		breed := func(mutations int) []*Individual {
			ssn := openTestSession(t, 42)
			require.NoError(t, ssn.CreatePopulation(6))
			require.NoError(t, ssn.Evaluate())
			require.NoError(t, ssn.RankSelection(3))
			require.NoError(t, ssn.CreateNewPopulation(test.size, mutations))
			return ssn.Population
		}

		pure := breed(0)
		mutated := breed(test.mutations)
		require.Len(t, mutated, test.size)

		changed := 0
		for i := range pure {
			changed += len(pure[i].Placement.Diff(mutated[i].Placement))
		}
		assert.Equal(t, test.mutations, changed, "size %d, mutations %d", test.size, test.mutations)
	}
}

func TestFailedIndividualsAreAbsorbed(t *testing.T) {
	ssn := OpenSession(failingEvaluator{buildSimulator(t, 6)}, makespanPolicy{}, nil, Options{Seed: 5})
	require.NoError(t, ssn.CreatePopulation(40))
	require.NoError(t, ssn.Evaluate())

	failed := 0
	for _, ind := range ssn.Population {
		if ind.Placement[0] == 0 {
			failed++
			assert.Equal(t, MinimalFitness, ind.Fitness)
			assert.Error(t, ind.Err)
		} else {
			assert.Greater(t, ind.Fitness, MinimalFitness)
		}
	}
	require.Greater(t, failed, 0)
	assert.Equal(t, failed, ssn.GetOptimizationState().Failures)

	best, err := ssn.SelectStronger()
	require.NoError(t, err)
	assert.NotEqual(t, 0, best.Placement[0])
	assert.NoError(t, ssn.RankSelection(10))
}

func TestSessionDeterminism(t *testing.T) {
	run := func() *OptimizationState {
		ssn := openTestSession(t, 7)
		require.NoError(t, ssn.CreatePopulation(8))
		require.NoError(t, ssn.Evaluate())
		require.NoError(t, ssn.RankSelection(4))
		for g := 0; g < 5; g++ {
			require.NoError(t, ssn.CreateNewPopulation(8, 3))
			require.NoError(t, ssn.Evaluate())
			require.NoError(t, ssn.RankSelection(4))
		}
		state := ssn.GetOptimizationState()
		state.UID = ""
		return state
	}

	first := run()
	assert.Equal(t, first, run())
	assert.Equal(t, 5, first.Generation)
	assert.Len(t, first.BestFitness, 6)
	assert.Len(t, first.MeanFitness, 6)
	assert.Equal(t, 48, first.Evaluations)
	assert.Len(t, first.BestPlacement, 6)
	for g, best := range first.BestFitness {
		assert.LessOrEqual(t, best, first.Fitness, "generation %d", g)
		assert.LessOrEqual(t, first.MeanFitness[g], best, "generation %d", g)
	}
}

func TestGetOptimizationStateIsReadOnly(t *testing.T) {
	ssn := openTestSession(t, 9)
	require.NoError(t, ssn.CreatePopulation(4))
	require.NoError(t, ssn.Evaluate())

	state := ssn.GetOptimizationState()
	state.BestFitness[0] = 1

	again := ssn.GetOptimizationState()
	assert.NotEqual(t, 1.0, again.BestFitness[0])
	assert.Equal(t, Evaluated, ssn.Phase())
}

func TestWeightedSample(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for k := 0; k <= 5; k++ {
		picked := weightedSample(rng, rankWeights(5), k)
		assert.Len(t, picked, k)
		for i := 1; i < len(picked); i++ {
			assert.Less(t, picked[i-1], picked[i])
		}
	}
}
