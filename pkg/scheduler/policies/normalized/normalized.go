package normalized

import (
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"k8s.io/klog"

	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
)

const (
	// PolicyName is the name the policy is registered under.
	PolicyName = "normalized"

	// EpsilonArgument names the argument setting the smallest spread an objective needs
	// to take part in the score.
	EpsilonArgument = "epsilon"

	defaultEpsilon = 1e-9
)

// Policy min-max normalizes every weighted objective over the evaluated population and
// scores 1 - weighted mean of the normalized costs, so fitness lies in [0, 1].
type Policy struct {
	epsilon float64
}

func New() *Policy {
	return &Policy{epsilon: defaultEpsilon}
}

func (np *Policy) Name() string {
	return PolicyName
}

func (np *Policy) Initialize(arguments map[string]string) error {
	np.epsilon = defaultEpsilon
	if s, found := arguments[EpsilonArgument]; found {
		epsilon, err := strconv.ParseFloat(s, 64)
		if err != nil || epsilon < 0 {
			return errors.Wrapf(api.ErrInvalidConfig, "argument %s=%q must be a non-negative number", EpsilonArgument, s)
		}
		np.epsilon = epsilon
	}
	klog.V(4).Infof("Policy <%s> initialized with epsilon %v", np.Name(), np.epsilon)
	return nil
}

func (np *Policy) Score(costs []map[string]float64, weights map[string]float64) []float64 {
	objectives := make([]string, 0, len(weights))
	for objective, w := range weights {
		if w > 0 {
			objectives = append(objectives, objective)
		}
	}
	sort.Strings(objectives)
	totalWeight := 0.0
	for _, objective := range objectives {
		totalWeight += weights[objective]
	}

	penalty := make([]float64, len(costs))
	for _, objective := range objectives {
		var values []float64
		for _, c := range costs {
			if c != nil {
				values = append(values, c[objective])
			}
		}
		if len(values) == 0 {
			continue
		}
		lo, hi := floats.Min(values), floats.Max(values)
		if hi-lo <= np.epsilon {
			continue
		}
		for i, c := range costs {
			if c != nil {
				penalty[i] += weights[objective] * (c[objective] - lo) / (hi - lo)
			}
		}
	}

	scores := make([]float64, len(costs))
	for i, c := range costs {
		if c == nil {
			continue
		}
		scores[i] = 1
		if totalWeight > 0 {
			scores[i] -= penalty[i] / totalWeight
		}
	}
	return scores
}
