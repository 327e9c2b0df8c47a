package session

import (
	"math/rand"
	"sort"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
)

// rankWeights returns n, n-1, ..., 1: the weight of each rank, best first.
func rankWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = float64(n - i)
	}
	return w
}

// pickWeighted draws one index with probability proportional to its weight.
func pickWeighted(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	x := rng.Float64() * total
	for i, w := range weights {
		if x < w {
			return i
		}
		x -= w
	}
	return len(weights) - 1
}

// weightedSample draws k distinct indices, each draw proportional to the weights of the
// indices not drawn yet. The result is sorted.
func weightedSample(rng *rand.Rand, weights []float64, k int) []int {
	remaining := make([]int, len(weights))
	for i := range remaining {
		remaining[i] = i
	}

	picked := make([]int, 0, k)
	for len(picked) < k {
		w := make([]float64, len(remaining))
		for i, idx := range remaining {
			w[i] = weights[idx]
		}
		j := pickWeighted(rng, w)
		picked = append(picked, remaining[j])
		remaining = append(remaining[:j], remaining[j+1:]...)
	}

	sort.Ints(picked)
	return picked
}

// crossover builds a child taking each gene from one of the parents with equal odds.
func crossover(rng *rand.Rand, p1, p2 api.Placement) api.Placement {
	child := make(api.Placement, len(p1))
	for t := range child {
		if rng.Intn(2) == 0 {
			child[t] = p1[t]
		} else {
			child[t] = p2[t]
		}
	}
	return child
}

// choosePositions draws m distinct positions in [0, n) with Floyd's algorithm, sorted.
func choosePositions(rng *rand.Rand, n, m int) []int {
	chosen := sets.NewInt()
	for j := n - m; j < n; j++ {
		t := rng.Intn(j + 1)
		if chosen.Has(t) {
			chosen.Insert(j)
		} else {
			chosen.Insert(t)
		}
	}
	return chosen.List()
}

// mutate moves gene t of p to another machine chosen uniformly.
func mutate(rng *rand.Rand, p api.Placement, t, machines int) {
	m := rng.Intn(machines - 1)
	if m >= p[t] {
		m++
	}
	p[t] = m
}

func validateBreeding(size, mutations, tasks, machines int) error {
	switch {
	case size < 1:
		return errors.Wrapf(api.ErrInvalidConfig, "population size %d must be at least 1", size)
	case mutations < 0:
		return errors.Wrapf(api.ErrInvalidConfig, "mutations %d must be non-negative", mutations)
	case mutations > size*tasks:
		return errors.Wrapf(api.ErrInvalidConfig, "%d mutations exceed the %d genes of the population", mutations, size*tasks)
	case mutations > 0 && machines < 2:
		return errors.Wrapf(api.ErrInvalidConfig, "cannot mutate with %d machine instances", machines)
	}
	return nil
}
