package makespan

import (
	"reflect"
	"testing"
)

func TestScoreIgnoresWeights(t *testing.T) {
	costs := []map[string]float64{{"makespan": 7, "cost": 100}, nil, {"makespan": 2}}
	expected := []float64{-7, 0, -2}

	scores := New().Score(costs, map[string]float64{"cost": 10})
	if !reflect.DeepEqual(scores, expected) {
		t.Errorf("expected %v, got %v", expected, scores)
	}
}
