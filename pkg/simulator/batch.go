package simulator

import (
	"context"
	"math/rand"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog"

	placementapi "github.com/qed-usc/placement-optimizer/pkg/apis/placement"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
)

// Resolver loads the documents a placement batch entry refers to.
type Resolver interface {
	TaskGraph(ref string) (*api.TaskGraph, error)
	MachineCatalog(ref string) (*api.MachineCatalog, error)
}

// BatchOptions tunes RunBatchSimulation.
type BatchOptions struct {
	// Workers bounds the number of entries simulated at once. Zero means one per CPU.
	Workers int
	// Seeds draws the seed of entries that have none. Nil means a time-seeded source.
	Seeds rand.Source
}

type batchJob struct {
	sim       *Simulator
	placement api.Placement
	seed      int64
}

// RunBatchSimulation simulates every entry and returns a copy of entries with Costs and
// Seed filled in. entries itself is not modified. Entries with a recorded seed are
// replayed exactly; the others get a fresh seed that is recorded. Any error, including an
// invalid placement, aborts the whole batch.
func RunBatchSimulation(ctx context.Context, entries []placementapi.PlacementEntry, resolver Resolver,
	model CostModel, opt BatchOptions) ([]placementapi.PlacementEntry, error) {
	seeds := opt.Seeds
	if seeds == nil {
		seeds = rand.NewSource(rand.Int63())
	}
	seedRand := rand.New(seeds)

	simulators := map[[2]string]*Simulator{}
	jobs := make([]batchJob, len(entries))
	for i, entry := range entries {
		key := [2]string{entry.Graph, entry.Specs}
		sim, found := simulators[key]
		if !found {
			graph, err := resolver.TaskGraph(entry.Graph)
			if err != nil {
				return nil, errors.Wrapf(err, "entry %d", i)
			}
			catalog, err := resolver.MachineCatalog(entry.Specs)
			if err != nil {
				return nil, errors.Wrapf(err, "entry %d", i)
			}
			if sim, err = NewSimulator(graph, catalog, model); err != nil {
				return nil, errors.Wrapf(err, "entry %d", i)
			}
			simulators[key] = sim
		}

		p, err := api.PlacementFromMap(entry.Placement, sim.Graph(), sim.Catalog())
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}

		jobs[i] = batchJob{sim: sim, placement: p}
		if entry.Seed != nil {
			jobs[i].seed = *entry.Seed
		} else {
			jobs[i].seed = seedRand.Int63()
		}
	}

	workers := opt.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]*api.SimulationState, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range jobs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			state, err := jobs[i].sim.Simulate(jobs[i].placement, jobs[i].seed)
			if err != nil {
				return errors.Wrapf(err, "entry %d", i)
			}
			results[i] = state
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]placementapi.PlacementEntry, len(entries))
	for i, entry := range entries {
		seed := results[i].Seed
		out[i] = placementapi.PlacementEntry{
			Graph:     entry.Graph,
			Specs:     entry.Specs,
			Placement: copyPlacement(entry.Placement),
			Seed:      &seed,
			Costs:     results[i].Costs,
		}
		klog.V(4).Infof("Simulated batch entry %d (seed %d): %v", i, seed, results[i].Costs)
	}

	return out, nil
}

func copyPlacement(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
