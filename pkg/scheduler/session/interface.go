package session

import (
	"sync"
)

// Policy combines the cost vectors of an evaluated population into fitness values.
// Higher fitness is better.
type Policy interface {
	Name() string
	// Initialize configures the policy from the arguments of the optimization parameters.
	Initialize(arguments map[string]string) error
	// Score returns one fitness per element of costs. Nil elements are failed simulations;
	// their score is ignored.
	Score(costs []map[string]float64, weights map[string]float64) []float64
}

// PolicyBuilder creates a policy ready to be initialized.
type PolicyBuilder func() Policy

var policyMutex sync.Mutex

// *Policy management
var policyBuilders = map[string]PolicyBuilder{}

// RegisterPolicyBuilder register policy builder
func RegisterPolicyBuilder(name string, builder PolicyBuilder) {
	policyMutex.Lock()
	defer policyMutex.Unlock()

	policyBuilders[name] = builder
}

// GetPolicy builds a new instance of the policy registered under name, so callers
// initializing it with their own arguments never share it.
func GetPolicy(name string) (Policy, bool) {
	policyMutex.Lock()
	defer policyMutex.Unlock()

	builder, found := policyBuilders[name]
	if !found {
		return nil, false
	}
	return builder(), true
}
