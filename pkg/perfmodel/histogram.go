package perfmodel

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
)

// DefaultBins is the number of histogram bins used when none is requested.
const DefaultBins = 20

// Histogram summarises the profiled cost distribution of one machine type for plotting.
type Histogram struct {
	MachineType string `json:"machineType"`
	Samples     int    `json:"samples"`

	// Edges has one more element than Counts.
	Edges   []float64 `json:"edges"`
	Counts  []float64 `json:"counts"`
	Density []float64 `json:"density"`

	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`

	// Fitted is the density of a log-normal fitted on all samples, evaluated at bin centres.
	Fitted []float64 `json:"fitted,omitempty"`
	// Reference is the density of the comparison dataset on the same edges.
	Reference []float64 `json:"reference,omitempty"`
	// Classes lists the kind of distribution sampled for each task class.
	Classes map[string]Kind `json:"classes"`
}

// DistributionSummary builds the diagnostic histogram of machineType.
func (m *Model) DistributionSummary(machineType string, bins int) (*Histogram, error) {
	mm, found := m.machines[machineType]
	if !found {
		return nil, errors.Wrapf(api.ErrModelMissing, "machine type %q", machineType)
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	costs := mm.costs
	lo, hi := costs[0], costs[len(costs)-1]
	if hi <= lo {
		hi = lo + 1
	}
	edges := floats.Span(make([]float64, bins+1), lo, hi)
	// stat.Histogram excludes the last edge.
	edges[bins] = math.Nextafter(hi, math.Inf(1))

	h := &Histogram{
		MachineType: machineType,
		Samples:     len(costs),
		Edges:       edges,
		Counts:      stat.Histogram(nil, edges, costs, nil),
		Mean:        stat.Mean(costs, nil),
		P50:         stat.Quantile(0.50, stat.Empirical, costs, nil),
		P95:         stat.Quantile(0.95, stat.Empirical, costs, nil),
		P99:         stat.Quantile(0.99, stat.Empirical, costs, nil),
		Classes:     make(map[string]Kind, len(mm.classes)),
	}
	if len(costs) > 1 {
		h.StdDev = stat.StdDev(costs, nil)
	}
	h.Density = density(h.Counts, edges, len(costs))

	if mu, sigma := fitLogNormal(costs); sigma > 0 {
		ln := distuv.LogNormal{Mu: mu, Sigma: sigma}
		h.Fitted = make([]float64, bins)
		for i := range h.Fitted {
			h.Fitted[i] = ln.Prob((edges[i] + edges[i+1]) / 2)
		}
	}

	if len(mm.reference) > 0 {
		var inRange []float64
		for _, v := range sortedCopy(mm.reference) {
			if v >= edges[0] && v < edges[bins] {
				inRange = append(inRange, v)
			}
		}
		counts := make([]float64, bins)
		if len(inRange) > 0 {
			counts = stat.Histogram(nil, edges, inRange, nil)
		}
		h.Reference = density(counts, edges, len(mm.reference))
	}

	for class, d := range mm.classes {
		h.Classes[class] = d.kind
	}

	return h, nil
}

func density(counts, edges []float64, total int) []float64 {
	out := make([]float64, len(counts))
	if total == 0 {
		return out
	}
	for i, c := range counts {
		if width := edges[i+1] - edges[i]; width > 0 {
			out[i] = c / (float64(total) * width)
		}
	}
	return out
}

func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	floats.Argsort(out, make([]int, len(out)))
	return out
}
