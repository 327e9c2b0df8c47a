/*
Copyright 2018 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package scheduler

import (
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/conf"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/session"
)

var defaultOptimizationConf = `
ga:
  initial_population: 100
  selected_individuals: 10
  population: 50
  mutations: 5
  period: 1
policy: "weighted-sum"
policies:
  makespan: 1
`

// LoadConfiguration parses an optimization parameter document, applies defaults, validates
// it and initializes the policy it names.
func LoadConfiguration(confStr string) (*conf.OptimizationConfiguration, session.Policy, error) {
	optConf := &conf.OptimizationConfiguration{}

	buf := make([]byte, len(confStr))
	copy(buf, confStr)

	if err := yaml.Unmarshal(buf, optConf); err != nil {
		return nil, nil, errors.Wrap(api.ErrParse, err.Error())
	}
	// Well-formed documents with fields nobody reads are schema violations.
	if err := yaml.UnmarshalStrict(buf, &conf.OptimizationConfiguration{}); err != nil {
		return nil, nil, errors.Wrap(api.ErrSchema, err.Error())
	}

	optConf.SetDefaults()
	if err := optConf.Validate(); err != nil {
		return nil, nil, err
	}

	policyName := strings.TrimSpace(optConf.Policy)
	policy, found := session.GetPolicy(policyName)
	if !found {
		return nil, nil, errors.Wrapf(api.ErrInvalidConfig, "failed to find policy %q", policyName)
	}
	if err := policy.Initialize(optConf.Arguments); err != nil {
		return nil, nil, err
	}

	return optConf, policy, nil
}

// ReadConfiguration loads the optimization parameter document at confPath, or the default
// parameters when confPath is empty.
func ReadConfiguration(confPath string) (*conf.OptimizationConfiguration, session.Policy, error) {
	if len(confPath) == 0 {
		return LoadConfiguration(defaultOptimizationConf)
	}
	dat, err := ioutil.ReadFile(confPath)
	if err != nil {
		return nil, nil, errors.Wrapf(api.ErrParse, "reading %s: %v", confPath, err)
	}
	return LoadConfiguration(string(dat))
}
