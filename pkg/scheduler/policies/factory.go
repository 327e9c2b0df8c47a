package policies

import (
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/policies/makespan"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/policies/normalized"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/policies/weightedsum"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/session"
)

func init() {
	session.RegisterPolicyBuilder(weightedsum.PolicyName, func() session.Policy { return weightedsum.New() })
	session.RegisterPolicyBuilder(normalized.PolicyName, func() session.Policy { return normalized.New() })
	session.RegisterPolicyBuilder(makespan.PolicyName, func() session.Policy { return makespan.New() })
}
