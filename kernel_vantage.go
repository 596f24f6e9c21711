package ranforest

import (
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// VantagePointKernel splits a node into the points closer (in L1) to a
// vantage point than the median distance and the rest.
//
// Each of NumHypo candidates picks a vantage point among the node's own
// points. A candidate scores by the median absolute deviation of the
// distances around their median; the largest score wins. If the farthest
// point from any candidate is closer than Converge, the node converged.
type VantagePointKernel struct{}

func (VantagePointKernel) Kind() KernelKind { return VantagePointKernelKind }

func (VantagePointKernel) NewPool(int) *SamplingPool { return nil }

func (VantagePointKernel) Elect(points [][]float32, dim int, state *SplitState, opts *SplitOptions, rng *rand.Rand) (ElectionStatus, Splitter) {
	if status, stop := checkStop(state, opts); stop {
		return status, nil
	}

	n := len(state.Idx)
	dists := make([]float64, n)
	devs := make([]float64, n)
	bestScore := -1.0
	var best *DistanceSplitter

	for range max(opts.NumHypo, 1) {
		vp := points[state.Idx[rng.IntN(n)]]
		for i, id := range state.Idx {
			dists[i] = manhattanDistanceImpl.Calculate(points[id], vp)
		}
		if far := floats.Max(dists); far <= 0 || far < opts.Converge {
			return Converged, nil
		}

		slices.Sort(dists)
		median := dists[n/2]
		for i, d := range dists {
			devs[i] = math.Abs(d - median)
		}
		slices.Sort(devs)

		if score := devs[n/2]; score > bestScore {
			bestScore = score
			best = &DistanceSplitter{Threshold: median, Vantage: slices.Clone(vp)}
		}
	}
	return Success, best
}
