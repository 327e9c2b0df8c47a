package generator

import (
	"fmt"
	"io/ioutil"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog"
	"sigs.k8s.io/yaml"

	placementapi "github.com/qed-usc/placement-optimizer/pkg/apis/placement"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
)

// Generator draws synthetic task graphs from weighted task templates.
type Generator struct {
	spec *placementapi.GeneratorSpec
	rng  *rand.Rand
	// cumulative template weights.
	weights []float64
}

// LoadSpec reads a generator document.
func LoadSpec(path string) (*placementapi.GeneratorSpec, error) {
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(api.ErrParse, "reading %s: %v", path, err)
	}

	var spec placementapi.GeneratorSpec
	if err := yaml.UnmarshalStrict(content, &spec); err != nil {
		if yaml.Unmarshal(content, &spec) == nil {
			return nil, errors.Wrapf(api.ErrSchema, "decoding %s: %v", path, err)
		}
		return nil, errors.Wrapf(api.ErrParse, "decoding %s: %v", path, err)
	}
	return &spec, nil
}

// NewGenerator checks spec and returns a generator seeded from it. A zero seed means a
// time-based one.
func NewGenerator(spec *placementapi.GeneratorSpec) (*Generator, error) {
	gs := spec.Graph
	switch {
	case len(spec.Templates) == 0:
		return nil, errors.Wrap(api.ErrInvalidConfig, "at least one template is required")
	case gs.NumTasks < 1:
		return nil, errors.Wrapf(api.ErrInvalidConfig, "numTasks %d must be at least 1", gs.NumTasks)
	case gs.Layers < 0:
		return nil, errors.Wrapf(api.ErrInvalidConfig, "layers %d must be non-negative", gs.Layers)
	case gs.EdgeProbability < 0 || gs.EdgeProbability > 1:
		return nil, errors.Wrapf(api.ErrInvalidConfig, "edgeProbability %v must be within [0, 1]", gs.EdgeProbability)
	case gs.MaxPredecessors < 0:
		return nil, errors.Wrapf(api.ErrInvalidConfig, "maxPredecessors %d must be non-negative", gs.MaxPredecessors)
	}

	g := &Generator{spec: spec}
	total := 0.0
	for i, t := range spec.Templates {
		if t.Class == "" {
			return nil, errors.Wrapf(api.ErrInvalidConfig, "template %d has no class", i)
		}
		if t.Weight < 0 {
			return nil, errors.Wrapf(api.ErrInvalidConfig, "template %q has a negative weight", t.Class)
		}
		w := t.Weight
		if w == 0 {
			w = 1
		}
		total += w
		g.weights = append(g.weights, total)
	}

	seed := spec.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g.rng = rand.New(rand.NewSource(seed))
	klog.V(3).Infof("Generating %d tasks with seed %d", gs.NumTasks, seed)

	return g, nil
}

// Run generates a task graph and writes it to fileOut.
func (g *Generator) Run(fileOut string) error {
	graph := g.GenerateGraph()

	specOut, err := yaml.Marshal(graph)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(fileOut, specOut, 0644)
}

// GenerateGraph draws a layered graph. Every task outside the first layer depends on at
// least one task of the layer just before it, and edges only point to later layers.
func (g *Generator) GenerateGraph() *placementapi.GraphSpec {
	gs := g.spec.Graph
	layers := g.layerSizes()

	graph := &placementapi.GraphSpec{}
	var previous, earlier []string
	id := 0
	for l, size := range layers {
		var current []string
		for n := 0; n < size; n++ {
			template := g.pickTemplate()
			task := placementapi.TaskSpec{
				ID:        fmt.Sprintf("%s-%d", template.Class, id),
				Class:     template.Class,
				Resources: template.Resources.DeepCopy(),
			}
			if l > 0 {
				task.Predecessors = g.pickPredecessors(previous, earlier, gs.EdgeProbability, gs.MaxPredecessors)
			}
			graph.Tasks = append(graph.Tasks, task)
			current = append(current, task.ID)
			id++
		}
		earlier = append(earlier, previous...)
		previous = current
	}

	return graph
}

// layerSizes splits the tasks over the layers, at least one task per layer.
func (g *Generator) layerSizes() []int {
	n := g.spec.Graph.NumTasks
	layers := g.spec.Graph.Layers
	if layers == 0 || layers > n {
		layers = n
	}

	sizes := make([]int, layers)
	for i := range sizes {
		sizes[i] = 1
	}
	for i := layers; i < n; i++ {
		sizes[g.rng.Intn(layers)]++
	}
	return sizes
}

func (g *Generator) pickTemplate() *placementapi.Template {
	x := g.rng.Float64() * g.weights[len(g.weights)-1]
	for i, w := range g.weights {
		if x < w {
			return &g.spec.Templates[i]
		}
	}
	return &g.spec.Templates[len(g.spec.Templates)-1]
}

// pickPredecessors always links one task of the previous layer, then every other earlier
// task with probability p, up to limit predecessors. A zero limit is unbounded.
func (g *Generator) pickPredecessors(previous, earlier []string, p float64, limit int) []string {
	chosen := sets.NewString(previous[g.rng.Intn(len(previous))])

	candidates := append(append([]string{}, previous...), earlier...)
	for _, i := range g.rng.Perm(len(candidates)) {
		if limit > 0 && chosen.Len() >= limit {
			break
		}
		if chosen.Has(candidates[i]) {
			continue
		}
		if g.rng.Float64() < p {
			chosen.Insert(candidates[i])
		}
	}
	return chosen.List()
}
