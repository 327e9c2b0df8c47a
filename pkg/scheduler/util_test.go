package scheduler

import (
	"errors"
	"io/ioutil"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/conf"
	_ "github.com/qed-usc/placement-optimizer/pkg/scheduler/policies"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/policies/normalized"
)

func TestLoadConfiguration(t *testing.T) {
	optConf := `
ga:
  initial_population: 20
  selected_individuals: 4
  population: 10
  mutations: 0
  period: 0.5
  seed: 3
policy: "normalized"
policies:
  makespan: 2
  cost: 1
arguments:
  epsilon: 1e-6
`
	seed, period := int64(3), 0.5
	expectedConfiguration := &conf.OptimizationConfiguration{
		GA: conf.GAConfiguration{
			InitialPopulation:   20,
			SelectedIndividuals: 4,
			Population:          10,
			Mutations:           0,
			Period:              &period,
			Seed:                &seed,
		},
		Policy:    "normalized",
		Policies:  map[string]float64{"makespan": 2, "cost": 1},
		Arguments: map[string]string{"epsilon": "1e-6"},
	}

	configuration, policy, err := LoadConfiguration(optConf)
	if err != nil {
		t.Fatalf("Failed to load optimization configuration: %v", err)
	}
	if _, ok := policy.(*normalized.Policy); !ok {
		t.Errorf("Wrong policy, expected normalized, got %+v", policy)
	}
	if !reflect.DeepEqual(configuration, expectedConfiguration) {
		t.Errorf("Wrong configuration, expected: %+v, got %+v",
			expectedConfiguration, configuration)
	}
}

func TestLoadConfigurationDefaults(t *testing.T) {
	configuration, policy, err := ReadConfiguration("")
	if err != nil {
		t.Fatalf("Failed to load default configuration: %v", err)
	}
	if policy.Name() != conf.DefaultPolicy {
		t.Errorf("Wrong default policy: %s", policy.Name())
	}
	if configuration.GA.SelectedIndividuals != conf.DefaultSelected {
		t.Errorf("Wrong default selection: %d", configuration.GA.SelectedIndividuals)
	}
	if configuration.PeriodDuration() != time.Second {
		t.Errorf("Wrong default period: %v", configuration.PeriodDuration())
	}

	configuration, _, err = LoadConfiguration(`ga: {population: 4}`)
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if configuration.GA.SelectedIndividuals != 4 {
		t.Errorf("Selection should be capped by the population size, got %d", configuration.GA.SelectedIndividuals)
	}
	if !reflect.DeepEqual(configuration.Policies, map[string]float64{api.ObjectiveMakespan: 1}) {
		t.Errorf("Wrong default weights: %v", configuration.Policies)
	}

	configuration, _, err = LoadConfiguration(`ga: {period: 0}`)
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if configuration.PeriodDuration() != 0 {
		t.Errorf("An explicit zero period should be kept, got %v", configuration.PeriodDuration())
	}
}

func TestLoadConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		conf    string
		wantErr error
	}{
		{"malformed", "ga: [", api.ErrParse},
		{"unknown field", "ga: {generations: 3}", api.ErrSchema},
		{"negative mutations", "ga: {mutations: -1}", api.ErrInvalidConfig},
		{"too many selected", "ga: {population: 5, selected_individuals: 6}", api.ErrInvalidConfig},
		{"negative population", "ga: {population: -5}", api.ErrInvalidConfig},
		{"negative period", "ga: {period: -1}", api.ErrInvalidConfig},
		{"unknown objective", "policies: {latency: 1}", api.ErrInvalidConfig},
		{"negative weight", "policies: {cost: -1}", api.ErrInvalidConfig},
		{"unknown policy", `policy: "fcfs"`, api.ErrInvalidConfig},
		{"bad argument", "policy: normalized\narguments: {epsilon: abc}", api.ErrInvalidConfig},
	}

	for _, test := range tests {
		_, _, err := LoadConfiguration(test.conf)
		if !errors.Is(err, test.wantErr) {
			t.Errorf("%s: expected %v, got %v", test.name, test.wantErr, err)
		}
	}
}

func TestReadConfiguration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	if err := ioutil.WriteFile(path, []byte(`{"ga": {"population": 8, "mutations": 2}, "policies": {"energy": 1}}`), 0644); err != nil {
		t.Fatal(err)
	}

	configuration, _, err := ReadConfiguration(path)
	if err != nil {
		t.Fatalf("Failed to read configuration: %v", err)
	}
	if configuration.GA.Population != 8 || configuration.GA.Mutations != 2 {
		t.Errorf("Wrong configuration: %+v", configuration.GA)
	}

	if _, _, err := ReadConfiguration(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, api.ErrParse) {
		t.Errorf("expected parse error, got %v", err)
	}
}
