package perfmodel

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
	v1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog"

	placementapi "github.com/qed-usc/placement-optimizer/pkg/apis/placement"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
)

// Sample is one profiling measurement.
type Sample struct {
	TaskClass   string
	MachineType string
	Cost        float64
}

type machineModel struct {
	name string

	classes map[string]*distribution
	// pooled samples cost per unit of work across all classes.
	pooled *distribution

	costs     []float64
	reference []float64
}

// Model is the fitted performance model of every profiled machine type. It is read-only
// after Fit and safe for concurrent use.
type Model struct {
	machines     map[string]*machineModel
	requirements map[string]*api.ResourceInfo
	// unit holds the mean requirement per dimension, used to express demands as work.
	unit      map[v1.ResourceName]float64
	unitNames []v1.ResourceName
}

// Fit builds the model from profiling samples and the per-class requirement table.
// reference samples are kept for diagnostic overlays only and never sampled from.
func Fit(samples []Sample, requirements placementapi.RequirementsSpec, reference []Sample) (*Model, error) {
	m := &Model{
		machines:     make(map[string]*machineModel),
		requirements: make(map[string]*api.ResourceInfo, len(requirements)),
		unit:         make(map[v1.ResourceName]float64),
	}

	// Classes are summed in lexical order so the unit, and every cost derived from it, is
	// bit-identical across fits of the same input.
	totals := make(map[v1.ResourceName]float64)
	for _, class := range sets.StringKeySet(requirements).List() {
		r := api.NewResource(requirements[class])
		m.requirements[class] = r
		for _, rName := range r.ResourceNames() {
			totals[rName] += r.Get(rName)
		}
	}
	for rName, total := range totals {
		if mean := total / float64(len(requirements)); mean > 0 {
			m.unit[rName] = mean
			m.unitNames = append(m.unitNames, rName)
		}
	}
	sort.Slice(m.unitNames, func(i, j int) bool { return m.unitNames[i] < m.unitNames[j] })

	perClass := make(map[string]map[string][]float64)
	pooled := make(map[string][]float64)
	for i, s := range samples {
		if s.MachineType == "" {
			return nil, errors.Wrapf(api.ErrSchema, "sample %d: machine type is required", i)
		}
		if !(s.Cost > 0) || math.IsInf(s.Cost, 0) {
			return nil, errors.Wrapf(api.ErrSchema, "sample %d: cost %v must be positive", i, s.Cost)
		}
		demand, found := m.requirements[s.TaskClass]
		if !found {
			return nil, errors.Wrapf(api.ErrSchema, "sample %d: task class %q has no requirements", i, s.TaskClass)
		}

		if perClass[s.MachineType] == nil {
			perClass[s.MachineType] = make(map[string][]float64)
		}
		perClass[s.MachineType][s.TaskClass] = append(perClass[s.MachineType][s.TaskClass], s.Cost)

		normalized := s.Cost
		if w := m.work(demand); w > 0 {
			normalized = s.Cost / w
		}
		pooled[s.MachineType] = append(pooled[s.MachineType], normalized)
	}

	for name, classes := range perClass {
		mm := &machineModel{
			name:    name,
			classes: make(map[string]*distribution, len(classes)),
			pooled:  newDistribution(pooled[name]),
		}
		for class, costs := range classes {
			mm.classes[class] = newDistribution(costs)
			mm.costs = append(mm.costs, costs...)
		}
		sort.Float64s(mm.costs)
		m.machines[name] = mm
		klog.V(4).Infof("Fitted performance model for machine type <%s>: %d samples, %d classes, pooled %s",
			name, len(mm.costs), len(mm.classes), mm.pooled.kind)
	}

	for i, s := range reference {
		if !(s.Cost > 0) || math.IsInf(s.Cost, 0) {
			return nil, errors.Wrapf(api.ErrSchema, "reference sample %d: cost %v must be positive", i, s.Cost)
		}
		if mm, found := m.machines[s.MachineType]; found {
			mm.reference = append(mm.reference, s.Cost)
		}
	}

	return m, nil
}

// work expresses a demand in multiples of the mean requirement. Empty demands count as one
// unit of work.
func (m *Model) work(demand *api.ResourceInfo) float64 {
	if demand == nil || demand.IsEmpty() || len(m.unit) == 0 {
		return 1
	}
	// Sum in a fixed order so repeated calls are bit-identical.
	total := 0.0
	for _, rName := range m.unitNames {
		total += demand.Get(rName) / m.unit[rName]
	}
	return total / float64(len(m.unitNames))
}

// Require fails with ErrModelMissing unless every given machine type was profiled.
func (m *Model) Require(machineTypes []string) error {
	var missing []string
	for _, name := range machineTypes {
		if _, found := m.machines[name]; !found {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.Wrapf(api.ErrModelMissing, "no profiling samples for machine types %v", missing)
	}
	return nil
}

// MachineTypes returns the profiled machine types in lexical order.
func (m *Model) MachineTypes() []string {
	return sets.StringKeySet(m.machines).List()
}

// SampleCost draws the execution cost of task on an instance of machineType. The result
// only depends on the task demand and class, the machine type and the state of rng.
func (m *Model) SampleCost(task *api.TaskInfo, machineType string, rng *rand.Rand) (float64, error) {
	mm, found := m.machines[machineType]
	if !found {
		return 0, errors.Wrapf(api.ErrModelMissing, "machine type %q", machineType)
	}

	if d, found := mm.classes[task.Class]; found {
		cost := d.sample(rng)
		if classDemand, found := m.requirements[task.Class]; found && task.Demand != nil && !task.Demand.IsEmpty() {
			if w := m.work(classDemand); w > 0 {
				cost *= m.work(task.Demand) / w
			}
		}
		return cost, nil
	}

	return mm.pooled.sample(rng) * m.work(task.Demand), nil
}
