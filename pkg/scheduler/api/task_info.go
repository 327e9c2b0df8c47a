package api

import (
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation/field"

	placementapi "github.com/qed-usc/placement-optimizer/pkg/apis/placement"
)

type TaskID string

// TaskInfo is one node of the task graph. Predecessors are indices into the graph.
type TaskInfo struct {
	Index int
	ID    TaskID
	Class string

	Demand *ResourceInfo

	Predecessors []int
}

// TaskGraph is an immutable, index-based DAG. It is safe for concurrent readers.
type TaskGraph struct {
	tasks      []*TaskInfo
	index      map[TaskID]int
	successors [][]int
	order      []int
}

// NewTaskGraph builds the graph from its document. A task without explicit resources takes
// the demand of its class from requirements, which may be nil.
func NewTaskGraph(spec *placementapi.GraphSpec, requirements placementapi.RequirementsSpec) (*TaskGraph, error) {
	var allErrs field.ErrorList
	tasksPath := field.NewPath("tasks")

	if len(spec.Tasks) == 0 {
		allErrs = append(allErrs, field.Required(tasksPath, "at least one task is required"))
		return nil, errors.Wrap(ErrSchema, allErrs.ToAggregate().Error())
	}

	g := &TaskGraph{
		tasks:      make([]*TaskInfo, 0, len(spec.Tasks)),
		index:      make(map[TaskID]int, len(spec.Tasks)),
		successors: make([][]int, len(spec.Tasks)),
	}

	for i, ts := range spec.Tasks {
		idPath := tasksPath.Index(i).Child("id")
		if ts.ID == "" {
			allErrs = append(allErrs, field.Required(idPath, ""))
			continue
		}
		id := TaskID(ts.ID)
		if _, found := g.index[id]; found {
			allErrs = append(allErrs, field.Duplicate(idPath, ts.ID))
			continue
		}

		class := ts.Class
		if class == "" {
			class = ts.ID
		}
		demand := EmptyResource()
		if len(ts.Resources) > 0 {
			demand = NewResource(ts.Resources)
		} else if rl, found := requirements[class]; found {
			demand = NewResource(rl)
		}
		for _, rName := range demand.ResourceNames() {
			if demand.Get(rName) < 0 {
				allErrs = append(allErrs, field.Invalid(tasksPath.Index(i).Child("resources").Key(string(rName)),
					demand.Get(rName), "must be non-negative"))
			}
		}

		g.index[id] = len(g.tasks)
		g.tasks = append(g.tasks, &TaskInfo{
			Index:  len(g.tasks),
			ID:     id,
			Class:  class,
			Demand: demand,
		})
	}
	if len(allErrs) > 0 {
		return nil, errors.Wrap(ErrSchema, allErrs.ToAggregate().Error())
	}

	for i, ts := range spec.Tasks {
		task := g.tasks[i]
		seen := sets.NewString()
		for j, pred := range ts.Predecessors {
			predPath := tasksPath.Index(i).Child("predecessors").Index(j)
			if seen.Has(pred) {
				allErrs = append(allErrs, field.Duplicate(predPath, pred))
				continue
			}
			seen.Insert(pred)
			p, found := g.index[TaskID(pred)]
			if !found {
				allErrs = append(allErrs, field.NotFound(predPath, pred))
				continue
			}
			task.Predecessors = append(task.Predecessors, p)
			g.successors[p] = append(g.successors[p], task.Index)
		}
	}
	if len(allErrs) > 0 {
		return nil, errors.Wrap(ErrSchema, allErrs.ToAggregate().Error())
	}

	order, err := topologicalOrder(g.tasks, g.successors)
	if err != nil {
		return nil, err
	}
	g.order = order

	return g, nil
}

// topologicalOrder runs Kahn's algorithm. Ready tasks are released in index order, so the
// result only depends on the graph.
func topologicalOrder(tasks []*TaskInfo, successors [][]int) ([]int, error) {
	indegree := make([]int, len(tasks))
	for _, t := range tasks {
		indegree[t.Index] = len(t.Predecessors)
	}

	queue := make([]int, 0, len(tasks))
	for i, d := range indegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, len(tasks))
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		order = append(order, next)
		for _, s := range successors[next] {
			indegree[s]--
			if indegree[s] == 0 {
				queue = append(queue, s)
			}
		}
	}

	if len(order) != len(tasks) {
		var stuck []string
		for i, d := range indegree {
			if d > 0 {
				stuck = append(stuck, string(tasks[i].ID))
			}
		}
		return nil, errors.Wrapf(ErrCycleDetected, "tasks %v are on or behind a dependency cycle", stuck)
	}
	return order, nil
}

// Len returns the number of tasks.
func (g *TaskGraph) Len() int {
	return len(g.tasks)
}

// Task returns the task at index i.
func (g *TaskGraph) Task(i int) *TaskInfo {
	return g.tasks[i]
}

// Index returns the index of the task with the given id.
func (g *TaskGraph) Index(id TaskID) (int, bool) {
	i, found := g.index[id]
	return i, found
}

// Order returns the topological order computed at load. Callers must not modify it.
func (g *TaskGraph) Order() []int {
	return g.order
}
