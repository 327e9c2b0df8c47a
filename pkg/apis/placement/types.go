package api

import v1 "k8s.io/api/core/v1"

// GraphSpec describes a task graph document.
type GraphSpec struct {
	Tasks []TaskSpec `json:"tasks"`
}

type TaskSpec struct {
	ID string `json:"id"`
	// Class names the entry of the requirements table driving the performance model.
	// Defaults to ID.
	Class string `json:"class,omitempty"`
	// Resources overrides the demand of the class for this task only.
	Resources    v1.ResourceList `json:"resources,omitempty"`
	Predecessors []string        `json:"predecessors,omitempty"`
}

// CatalogSpec describes the machine specification document.
type CatalogSpec struct {
	Types []MachineTypeSpec `json:"types"`
	// Instances lists concrete machines. When empty, every type contributes Count
	// instances named "<type>-<i>", or a single instance named after the type.
	Instances []MachineInstanceSpec `json:"instances,omitempty"`
}

type MachineTypeSpec struct {
	Name          string          `json:"name"`
	Capacity      v1.ResourceList `json:"capacity,omitempty"`
	CostPerTime   float64         `json:"costPerTime,omitempty"`
	EnergyPerTime float64         `json:"energyPerTime,omitempty"`
	Slots         int             `json:"slots,omitempty"`
	Count         int             `json:"count,omitempty"`
}

type MachineInstanceSpec struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// RequirementsSpec maps a task class to its resource demand.
type RequirementsSpec map[string]v1.ResourceList

// PlacementEntry is one element of a placement batch document. Costs and Seed are
// filled in by the batch simulation.
type PlacementEntry struct {
	Graph     string             `json:"graph"`
	Specs     string             `json:"specs"`
	Placement map[string]string  `json:"placement"`
	Seed      *int64             `json:"seed,omitempty"`
	Costs     map[string]float64 `json:"costs,omitempty"`
}

type GeneratorSpec struct {
	Templates []Template         `json:"templates,omitempty"`
	Graph     GraphGeneratorSpec `json:"graph,omitempty"`
	Seed      int64              `json:"seed,omitempty"`
}

type Template struct {
	Class     string          `json:"class"`
	Resources v1.ResourceList `json:"resources,omitempty"`
	Weight    float64         `json:"weight,omitempty"`
}

type GraphGeneratorSpec struct {
	NumTasks        int     `json:"numTasks,omitempty"`
	Layers          int     `json:"layers,omitempty"`
	EdgeProbability float64 `json:"edgeProbability,omitempty"`
	MaxPredecessors int     `json:"maxPredecessors,omitempty"`
}
