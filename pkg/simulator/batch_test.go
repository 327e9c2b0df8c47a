package simulator

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	placementapi "github.com/qed-usc/placement-optimizer/pkg/apis/placement"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
)

type fakeResolver struct {
	graphs   map[string]*api.TaskGraph
	catalogs map[string]*api.MachineCatalog
}

func (r *fakeResolver) TaskGraph(ref string) (*api.TaskGraph, error) {
	g, found := r.graphs[ref]
	if !found {
		return nil, api.ErrParse
	}
	return g, nil
}

func (r *fakeResolver) MachineCatalog(ref string) (*api.MachineCatalog, error) {
	c, found := r.catalogs[ref]
	if !found {
		return nil, api.ErrParse
	}
	return c, nil
}

func buildResolver(t *testing.T) *fakeResolver {
	return &fakeResolver{
		graphs: map[string]*api.TaskGraph{
			"chain.json": buildGraph(t, map[string][]string{"b": {"a"}, "c": {"b"}}, "a", "b", "c"),
			"pair.json":  buildGraph(t, nil, "a", "d"),
		},
		catalogs: map[string]*api.MachineCatalog{
			"specs.json": buildCatalog(t,
				placementapi.MachineTypeSpec{Name: "fast", CostPerTime: 2},
				placementapi.MachineTypeSpec{Name: "slow", CostPerTime: 1},
			),
		},
	}
}

func TestRunBatchSimulationIdempotent(t *testing.T) {
	seed := int64(11)
	entries := []placementapi.PlacementEntry{
		{Graph: "chain.json", Specs: "specs.json", Placement: map[string]string{"a": "fast", "b": "slow", "c": "fast"}},
		{Graph: "pair.json", Specs: "specs.json", Placement: map[string]string{"a": "slow", "d": "slow"}, Seed: &seed},
		{Graph: "chain.json", Specs: "specs.json", Placement: map[string]string{"a": "slow", "b": "slow", "c": "slow"}},
	}
	resolver := buildResolver(t)
	model := buildModel(t)

	first, err := RunBatchSimulation(context.Background(), entries, resolver, model, BatchOptions{Workers: 2, Seeds: rand.NewSource(1)})
	require.NoError(t, err)
	require.Len(t, first, len(entries))

	// The input is left untouched.
	assert.Nil(t, entries[0].Seed)
	assert.Nil(t, entries[0].Costs)

	for i, entry := range first {
		require.NotNil(t, entry.Seed, "entry %d", i)
		assert.Equal(t, entries[i].Placement, entry.Placement)
		for _, objective := range api.Objectives {
			assert.Contains(t, entry.Costs, objective)
		}
	}
	assert.Equal(t, seed, *first[1].Seed)

	second, err := RunBatchSimulation(context.Background(), first, resolver, model, BatchOptions{Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRunBatchSimulationErrors(t *testing.T) {
	tests := []struct {
		name    string
		entry   placementapi.PlacementEntry
		wantErr error
	}{
		{
			name:    "partial placement",
			entry:   placementapi.PlacementEntry{Graph: "pair.json", Specs: "specs.json", Placement: map[string]string{"a": "fast"}},
			wantErr: api.ErrInvalidPlacement,
		},
		{
			name:    "unknown machine",
			entry:   placementapi.PlacementEntry{Graph: "pair.json", Specs: "specs.json", Placement: map[string]string{"a": "fast", "d": "gpu"}},
			wantErr: api.ErrInvalidPlacement,
		},
		{
			name:    "missing graph",
			entry:   placementapi.PlacementEntry{Graph: "nope.json", Specs: "specs.json"},
			wantErr: api.ErrParse,
		},
	}

	for _, test := range tests {
		entries := []placementapi.PlacementEntry{
			{Graph: "pair.json", Specs: "specs.json", Placement: map[string]string{"a": "fast", "d": "slow"}},
			test.entry,
		}
		out, err := RunBatchSimulation(context.Background(), entries, buildResolver(t), buildModel(t), BatchOptions{})
		assert.Nil(t, out, test.name)
		assert.True(t, errors.Is(err, test.wantErr), "%s: got %v", test.name, err)
	}
}
