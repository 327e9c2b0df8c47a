package generator

import (
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	v1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	placementapi "github.com/qed-usc/placement-optimizer/pkg/apis/placement"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
)

func buildSpec(numTasks, layers, maxPredecessors int) *placementapi.GeneratorSpec {
	return &placementapi.GeneratorSpec{
		Templates: []placementapi.Template{
			{Class: "map", Weight: 3, Resources: v1.ResourceList{v1.ResourceCPU: resource.MustParse("1")}},
			{Class: "reduce", Weight: 1, Resources: v1.ResourceList{v1.ResourceCPU: resource.MustParse("2")}},
		},
		Graph: placementapi.GraphGeneratorSpec{
			NumTasks:        numTasks,
			Layers:          layers,
			EdgeProbability: 0.5,
			MaxPredecessors: maxPredecessors,
		},
		Seed: 42,
	}
}

func TestGenerateGraphIsAcyclic(t *testing.T) {
	gen, err := NewGenerator(buildSpec(40, 6, 3))
	require.NoError(t, err)

	spec := gen.GenerateGraph()
	require.Len(t, spec.Tasks, 40)

	graph, err := api.NewTaskGraph(spec, nil)
	require.NoError(t, err)
	assert.Len(t, graph.Order(), 40)

	roots := 0
	for _, task := range spec.Tasks {
		assert.LessOrEqual(t, len(task.Predecessors), 3, task.ID)
		if len(task.Predecessors) == 0 {
			roots++
		}
	}
	assert.GreaterOrEqual(t, roots, 1)
	assert.LessOrEqual(t, roots, 40-5, "every layer after the first should depend on an earlier one")
}

func TestGenerateGraphReproducible(t *testing.T) {
	first, err := NewGenerator(buildSpec(25, 4, 0))
	require.NoError(t, err)
	second, err := NewGenerator(buildSpec(25, 4, 0))
	require.NoError(t, err)

	assert.Equal(t, first.GenerateGraph(), second.GenerateGraph())
}

func TestGenerateGraphLayers(t *testing.T) {
	// One layer per task yields a chain.
	gen, err := NewGenerator(buildSpec(5, 0, 1))
	require.NoError(t, err)

	spec := gen.GenerateGraph()
	for i, task := range spec.Tasks {
		if i == 0 {
			assert.Empty(t, task.Predecessors)
			continue
		}
		assert.Equal(t, []string{spec.Tasks[i-1].ID}, task.Predecessors)
	}
}

func TestNewGeneratorErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(spec *placementapi.GeneratorSpec)
	}{
		{"no templates", func(spec *placementapi.GeneratorSpec) { spec.Templates = nil }},
		{"no tasks", func(spec *placementapi.GeneratorSpec) { spec.Graph.NumTasks = 0 }},
		{"bad probability", func(spec *placementapi.GeneratorSpec) { spec.Graph.EdgeProbability = 1.5 }},
		{"negative weight", func(spec *placementapi.GeneratorSpec) { spec.Templates[0].Weight = -1 }},
		{"missing class", func(spec *placementapi.GeneratorSpec) { spec.Templates[1].Class = "" }},
	}

	for _, test := range tests {
		spec := buildSpec(10, 2, 0)
		test.modify(spec)
		_, err := NewGenerator(spec)
		assert.True(t, errors.Is(err, api.ErrInvalidConfig), "%s: got %v", test.name, err)
	}
}

func TestRunWritesGraph(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "generator.yaml")
	require.NoError(t, ioutil.WriteFile(in, []byte(`
templates:
- class: etl
  resources: {cpu: "1"}
graph:
  numTasks: 6
  layers: 3
  edgeProbability: 0.3
seed: 9
`), 0644))

	spec, err := LoadSpec(in)
	require.NoError(t, err)
	gen, err := NewGenerator(spec)
	require.NoError(t, err)

	out := filepath.Join(dir, "graph.yaml")
	require.NoError(t, gen.Run(out))

	data, err := ioutil.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "tasks:"))
	assert.Contains(t, string(data), "class: etl")

	_, err = LoadSpec(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, api.ErrParse))
}

func TestLoadSpecErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"malformed", "templates: [", api.ErrParse},
		{"unknown field", "graph: {numTasks: 3, depth: 2}", api.ErrSchema},
	}

	dir := t.TempDir()
	for i, test := range tests {
		path := filepath.Join(dir, fmt.Sprintf("spec-%d.yaml", i))
		require.NoError(t, ioutil.WriteFile(path, []byte(test.content), 0644))
		_, err := LoadSpec(path)
		assert.True(t, errors.Is(err, test.wantErr), "%s: got %v", test.name, err)
	}
}
