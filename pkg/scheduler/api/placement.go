package api

import (
	"github.com/pkg/errors"
)

// Placement is the genome searched by the optimizer: gene i holds the index of the machine
// instance task i runs on. Placements are never shared between individuals; derive new ones
// with Clone.
type Placement []int

// NewPlacement returns a placement for n tasks with every task unassigned.
func NewPlacement(n int) Placement {
	p := make(Placement, n)
	for i := range p {
		p[i] = -1
	}
	return p
}

func (p Placement) Clone() Placement {
	clone := make(Placement, len(p))
	copy(clone, p)
	return clone
}

// Validate checks the placement is total over the graph and only references machines of
// the catalog.
func (p Placement) Validate(graph *TaskGraph, catalog *MachineCatalog) error {
	if len(p) != graph.Len() {
		return errors.Wrapf(ErrInvalidPlacement, "placement maps %d tasks, graph has %d", len(p), graph.Len())
	}
	for i, m := range p {
		if m < 0 {
			return errors.Wrapf(ErrInvalidPlacement, "task %q is not mapped", graph.Task(i).ID)
		}
		if m >= catalog.Len() {
			return errors.Wrapf(ErrInvalidPlacement, "task %q mapped to unknown machine index %d", graph.Task(i).ID, m)
		}
	}
	return nil
}

// PlacementFromMap converts a task id -> machine id document into a Placement.
func PlacementFromMap(m map[string]string, graph *TaskGraph, catalog *MachineCatalog) (Placement, error) {
	p := NewPlacement(graph.Len())
	for taskID, machineID := range m {
		ti, found := graph.Index(TaskID(taskID))
		if !found {
			return nil, errors.Wrapf(ErrInvalidPlacement, "unknown task %q", taskID)
		}
		mi, found := catalog.Index(machineID)
		if !found {
			return nil, errors.Wrapf(ErrInvalidPlacement, "task %q mapped to unknown machine %q", taskID, machineID)
		}
		p[ti] = mi
	}
	if err := p.Validate(graph, catalog); err != nil {
		return nil, err
	}
	return p, nil
}

// ToMap converts the placement to its task id -> machine id document form. Genes outside
// the catalog are left out.
func (p Placement) ToMap(graph *TaskGraph, catalog *MachineCatalog) map[string]string {
	m := make(map[string]string, len(p))
	for i, mi := range p {
		if mi < 0 || mi >= catalog.Len() || i >= graph.Len() {
			continue
		}
		m[string(graph.Task(i).ID)] = catalog.Machine(mi).ID
	}
	return m
}

// Diff returns the task indices whose machine differs between p and q.
func (p Placement) Diff(q Placement) []int {
	var diff []int
	for i := range p {
		if i >= len(q) || p[i] != q[i] {
			diff = append(diff, i)
		}
	}
	return diff
}
