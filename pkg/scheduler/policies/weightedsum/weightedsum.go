package weightedsum

import (
	"sort"
)

// PolicyName is the name the policy is registered under.
const PolicyName = "weighted-sum"

// Policy scores an individual with the negated weighted sum of its raw costs.
type Policy struct{}

func New() *Policy {
	return &Policy{}
}

func (ws *Policy) Name() string {
	return PolicyName
}

func (ws *Policy) Initialize(arguments map[string]string) error {
	return nil
}

func (ws *Policy) Score(costs []map[string]float64, weights map[string]float64) []float64 {
	objectives := make([]string, 0, len(weights))
	for objective := range weights {
		objectives = append(objectives, objective)
	}
	sort.Strings(objectives)

	scores := make([]float64, len(costs))
	for i, c := range costs {
		if c == nil {
			continue
		}
		sum := 0.0
		for _, objective := range objectives {
			sum += weights[objective] * c[objective]
		}
		scores[i] = -sum
	}
	return scores
}
