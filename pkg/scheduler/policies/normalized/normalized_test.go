package normalized

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		costs    []map[string]float64
		weights  map[string]float64
		expected []float64
	}{
		{
			name:     "single objective",
			costs:    []map[string]float64{{"makespan": 10}, {"makespan": 20}, {"makespan": 15}},
			weights:  map[string]float64{"makespan": 1},
			expected: []float64{1, 0, 0.5},
		},
		{
			name:     "two objectives",
			costs:    []map[string]float64{{"makespan": 10, "cost": 4}, {"makespan": 20, "cost": 2}},
			weights:  map[string]float64{"makespan": 3, "cost": 1},
			expected: []float64{0.75, 0.25},
		},
		{
			name:     "flat objective",
			costs:    []map[string]float64{{"makespan": 10}, {"makespan": 10}},
			weights:  map[string]float64{"makespan": 1},
			expected: []float64{1, 1},
		},
		{
			name:     "failed simulations are ignored",
			costs:    []map[string]float64{nil, {"makespan": 1}, {"makespan": 3}},
			weights:  map[string]float64{"makespan": 1},
			expected: []float64{0, 1, 0},
		},
	}

	p := New()
	require.NoError(t, p.Initialize(nil))
	for _, test := range tests {
		scores := p.Score(test.costs, test.weights)
		require.Len(t, scores, len(test.expected), test.name)
		for i := range scores {
			assert.InDelta(t, test.expected[i], scores[i], 1e-12, test.name)
		}
	}
}

func TestInitialize(t *testing.T) {
	p := New()
	require.NoError(t, p.Initialize(map[string]string{EpsilonArgument: "5"}))

	// A spread of 4 is below epsilon, so the objective is ignored.
	scores := p.Score([]map[string]float64{{"makespan": 1}, {"makespan": 5}}, map[string]float64{"makespan": 1})
	assert.Equal(t, []float64{1, 1}, scores)

	for _, bad := range []string{"abc", "-1"} {
		err := p.Initialize(map[string]string{EpsilonArgument: bad})
		assert.True(t, errors.Is(err, api.ErrInvalidConfig), bad)
	}
}

func TestScoreIsBitIdentical(t *testing.T) {
	weights := map[string]float64{"makespan": 0.1, "cost": 0.7, "energy": 0.3, "waste": 0.11, "idle": 1.3}
	costs := []map[string]float64{
		{"makespan": 10, "cost": 4, "energy": 1, "waste": 0.2, "idle": 3},
		{"makespan": 13, "cost": 2, "energy": 7, "waste": 0.9, "idle": 1},
		{"makespan": 11, "cost": 9, "energy": 2, "waste": 0.4, "idle": 8},
	}

	p := New()
	require.NoError(t, p.Initialize(nil))
	expected := p.Score(costs, weights)
	for i := 0; i < 50; i++ {
		assert.Equal(t, expected, p.Score(costs, weights))
	}
}
