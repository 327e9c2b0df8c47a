package perfmodel

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinEmpiricalSamples is the sample count from which the empirical distribution is used
// as is. Smaller sets are smoothed with a log-normal fit.
const MinEmpiricalSamples = 30

type Kind string

const (
	Empirical Kind = "empirical"
	LogNormal Kind = "lognormal"
)

// distribution is a one-dimensional cost distribution sampled by inverse transform.
type distribution struct {
	kind Kind

	// sorted holds the samples of an empirical distribution.
	sorted []float64

	// mu and sigma parameterise the log-normal fit.
	mu, sigma float64
}

// newDistribution fits values, which must all be positive.
func newDistribution(values []float64) *distribution {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) >= MinEmpiricalSamples {
		return &distribution{kind: Empirical, sorted: sorted}
	}

	mu, sigma := fitLogNormal(sorted)
	return &distribution{kind: LogNormal, sorted: sorted, mu: mu, sigma: sigma}
}

// fitLogNormal returns the maximum likelihood parameters of a log-normal fit. A single
// value yields sigma 0, a point mass.
func fitLogNormal(values []float64) (mu, sigma float64) {
	logs := make([]float64, len(values))
	for i, v := range values {
		logs[i] = math.Log(v)
	}
	if len(logs) < 2 {
		return stat.Mean(logs, nil), 0
	}
	mu = stat.Mean(logs, nil)
	sigma = stat.PopStdDev(logs, nil)
	return mu, sigma
}

// quantile returns the cost at cumulative probability p in [0, 1].
func (d *distribution) quantile(p float64) float64 {
	switch d.kind {
	case Empirical:
		return stat.Quantile(p, stat.LinInterp, d.sorted, nil)
	default:
		if d.sigma == 0 {
			return math.Exp(d.mu)
		}
		return distuv.LogNormal{Mu: d.mu, Sigma: d.sigma}.Quantile(p)
	}
}

// sample draws one cost. It consumes exactly one value from rng.
func (d *distribution) sample(rng *rand.Rand) float64 {
	return d.quantile(rng.Float64())
}
