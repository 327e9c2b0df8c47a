package makespan

import (
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
)

// PolicyName is the name the policy is registered under.
const PolicyName = "makespan"

// Policy only looks at the makespan, whatever the weights.
type Policy struct{}

func New() *Policy {
	return &Policy{}
}

func (ms *Policy) Name() string {
	return PolicyName
}

func (ms *Policy) Initialize(arguments map[string]string) error {
	return nil
}

func (ms *Policy) Score(costs []map[string]float64, _ map[string]float64) []float64 {
	scores := make([]float64, len(costs))
	for i, c := range costs {
		if c != nil {
			scores[i] = -c[api.ObjectiveMakespan]
		}
	}
	return scores
}
