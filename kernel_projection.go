package ranforest

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/viterin/vek/vek32"
)

// ProjectionKernel splits along a random direction inside a small subspace.
//
// Up to ProjDim components are drawn from the node's pool, disqualifying
// those whose range is zero or below Converge. Each of NumHypo candidates
// draws a unit gaussian direction over those components and thresholds the
// projections at their median. The most balanced candidate wins.
type ProjectionKernel struct{}

func (ProjectionKernel) Kind() KernelKind { return ProjectionKernelKind }

func (ProjectionKernel) NewPool(dim int) *SamplingPool { return NewSamplingPool(dim) }

func (ProjectionKernel) Elect(points [][]float32, dim int, state *SplitState, opts *SplitOptions, rng *rand.Rand) (ElectionStatus, Splitter) {
	if status, stop := checkStop(state, opts); stop {
		return status, nil
	}
	pool := state.Pool
	if pool == nil || pool.Size() == 0 {
		return NullHypothesisSet, nil
	}

	projDim := max(opts.ProjDim, 1)
	components := make([]int, 0, projDim)
	pool.Rewind()
	for len(components) < projDim {
		c, ok := pool.Draw(rng)
		if !ok {
			break
		}
		lo, hi := axisRange(points, state.Idx, c)
		if span := hi - lo; span <= 0 || span < opts.Converge {
			pool.DisqualifyCurrent()
			continue
		}
		components = append(components, c)
	}
	if len(components) == 0 {
		return Converged, nil
	}

	n := len(state.Idx)
	proj := make([]float64, n)
	sorted := make([]float64, n)
	bestScore := math.MaxInt
	var best *SubspaceSplitter

	for range max(opts.NumHypo, 1) {
		axis := gaussianDirection(rng, len(components))
		if axis == nil {
			continue
		}
		cand := &SubspaceSplitter{Components: components, Axis: axis}
		for i, id := range state.Idx {
			proj[i] = float64(cand.Project(points[id]))
		}
		copy(sorted, proj)
		slices.Sort(sorted)
		if span := sorted[n-1] - sorted[0]; span <= 0 || span < opts.Converge {
			continue
		}

		threshold := float32(sorted[n/2])
		left := 0
		for _, v := range proj {
			if v < float64(threshold) {
				left++
			}
		}
		if left == 0 {
			continue
		}

		if score := abs(2*left - n); score < bestScore {
			bestScore = score
			cand.Threshold = threshold
			best = cand
		}
	}

	if best == nil {
		return Converged, nil
	}
	best.Components = slices.Clone(best.Components)
	return Success, best
}

// gaussianDirection returns a random unit vector of length k, or nil in the
// degenerate case of a zero draw.
func gaussianDirection(rng *rand.Rand, k int) []float32 {
	axis := make([]float32, k)
	for i := range axis {
		axis[i] = float32(rng.NormFloat64())
	}
	norm := vek32.Norm(axis)
	if norm == 0 {
		return nil
	}
	vek32.MulNumber_Inplace(axis, 1/norm)
	return axis
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
