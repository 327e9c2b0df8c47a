package weightedsum

import (
	"reflect"
	"testing"
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
			costs:    []map[string]float64{{"makespan": 10}, {"makespan": 4}},
			weights:  map[string]float64{"makespan": 1},
			expected: []float64{-10, -4},
		},
		{
			name:     "weighted objectives",
			costs:    []map[string]float64{{"makespan": 10, "cost": 2}, {"makespan": 4, "cost": 20}},
			weights:  map[string]float64{"makespan": 1, "cost": 0.5},
			expected: []float64{-11, -14},
		},
		{
			name:     "failed simulation",
			costs:    []map[string]float64{nil, {"makespan": 3}},
			weights:  map[string]float64{"makespan": 2},
			expected: []float64{0, -6},
		},
		{
			name:     "no weights",
			costs:    []map[string]float64{{"makespan": 3}},
			expected: []float64{0},
		},
	}

	p := New()
	for _, test := range tests {
		scores := p.Score(test.costs, test.weights)
		if !reflect.DeepEqual(scores, test.expected) {
			t.Errorf("%s: expected %v, got %v", test.name, test.expected, scores)
		}
	}
}
