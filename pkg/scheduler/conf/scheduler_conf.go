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

package conf

import (
	"time"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
)

const (
	DefaultPolicy            = "weighted-sum"
	DefaultInitialPopulation = 100
	DefaultSelected          = 10
	DefaultPopulation        = 50
	DefaultPeriodSeconds     = 1.0
)

// OptimizationConfiguration is the optimization parameter document.
type OptimizationConfiguration struct {
	GA GAConfiguration `yaml:"ga"`
	// Policy names the fitness policy combining the cost objectives.
	Policy string `yaml:"policy"`
	// Policies weighs each cost objective.
	Policies map[string]float64 `yaml:"policies"`
	// Arguments defines the different arguments that can be given to specified policy
	Arguments map[string]string `yaml:"arguments"`
}

// GAConfiguration holds the genetic algorithm parameters.
type GAConfiguration struct {
	InitialPopulation   int `yaml:"initial_population"`
	SelectedIndividuals int `yaml:"selected_individuals"`
	Population          int `yaml:"population"`
	Mutations           int `yaml:"mutations"`
	// Period bounds, in seconds, how long a generation report may wait for the sink. An
	// explicit zero waits for the sink unconditionally.
	Period  *float64 `yaml:"period"`
	Workers int      `yaml:"workers"`
	// Seed makes the run reproducible. A random seed is used when unset.
	Seed *int64 `yaml:"seed"`
	// MaxGenerations stops the run after that many bred generations. Zero is unbounded.
	MaxGenerations int `yaml:"max_generations"`
}

// SetDefaults fills in unset parameters.
func (c *OptimizationConfiguration) SetDefaults() {
	if c.Policy == "" {
		c.Policy = DefaultPolicy
	}
	if len(c.Policies) == 0 {
		c.Policies = map[string]float64{api.ObjectiveMakespan: 1}
	}
	if c.GA.InitialPopulation == 0 {
		c.GA.InitialPopulation = DefaultInitialPopulation
	}
	if c.GA.Population == 0 {
		c.GA.Population = DefaultPopulation
	}
	if c.GA.SelectedIndividuals == 0 {
		c.GA.SelectedIndividuals = DefaultSelected
		if limit := minInt(c.GA.InitialPopulation, c.GA.Population); c.GA.SelectedIndividuals > limit {
			c.GA.SelectedIndividuals = limit
		}
	}
	if c.GA.Period == nil {
		period := DefaultPeriodSeconds
		c.GA.Period = &period
	}
}

// Validate rejects parameters no generation could run with.
func (c *OptimizationConfiguration) Validate() error {
	var allErrs field.ErrorList
	gaPath := field.NewPath("ga")

	if c.GA.InitialPopulation < 1 {
		allErrs = append(allErrs, field.Invalid(gaPath.Child("initial_population"), c.GA.InitialPopulation, "must be at least 1"))
	}
	if c.GA.Population < 1 {
		allErrs = append(allErrs, field.Invalid(gaPath.Child("population"), c.GA.Population, "must be at least 1"))
	}
	if limit := minInt(c.GA.InitialPopulation, c.GA.Population); c.GA.SelectedIndividuals < 1 || c.GA.SelectedIndividuals > limit {
		allErrs = append(allErrs, field.Invalid(gaPath.Child("selected_individuals"), c.GA.SelectedIndividuals,
			"must be between 1 and the smallest population size"))
	}
	if c.GA.Mutations < 0 {
		allErrs = append(allErrs, field.Invalid(gaPath.Child("mutations"), c.GA.Mutations, "must be non-negative"))
	}
	if c.GA.Period != nil && *c.GA.Period < 0 {
		allErrs = append(allErrs, field.Invalid(gaPath.Child("period"), *c.GA.Period, "must be non-negative"))
	}
	if c.GA.Workers < 0 {
		allErrs = append(allErrs, field.Invalid(gaPath.Child("workers"), c.GA.Workers, "must be non-negative"))
	}
	if c.GA.MaxGenerations < 0 {
		allErrs = append(allErrs, field.Invalid(gaPath.Child("max_generations"), c.GA.MaxGenerations, "must be non-negative"))
	}

	objectives := sets.NewString(api.Objectives...)
	policiesPath := field.NewPath("policies")
	for objective, w := range c.Policies {
		if !objectives.Has(objective) {
			allErrs = append(allErrs, field.NotSupported(policiesPath.Key(objective), objective, api.Objectives))
		}
		if w < 0 {
			allErrs = append(allErrs, field.Invalid(policiesPath.Key(objective), w, "must be non-negative"))
		}
	}

	if len(allErrs) > 0 {
		return errors.Wrap(api.ErrInvalidConfig, allErrs.ToAggregate().Error())
	}
	return nil
}

// PeriodDuration returns the reporting period, the default one when unset.
func (c *OptimizationConfiguration) PeriodDuration() time.Duration {
	period := DefaultPeriodSeconds
	if c.GA.Period != nil {
		period = *c.GA.Period
	}
	return time.Duration(period * float64(time.Second))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
