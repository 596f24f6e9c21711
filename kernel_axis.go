package ranforest

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
)

// AxisKernel splits on a single coordinate at a random threshold.
//
// Candidate axes are drawn from the node's pool. An axis whose range over
// the node is zero or below Converge is disqualified for the whole subtree.
// For each usable axis a threshold is drawn uniformly from the inner 95% of
// its range, and the best of NumHypo candidates wins under opts.Score.
type AxisKernel struct{}

func (AxisKernel) Kind() KernelKind { return AxisKernelKind }

func (AxisKernel) NewPool(dim int) *SamplingPool { return NewSamplingPool(dim) }

func (AxisKernel) Elect(points [][]float32, dim int, state *SplitState, opts *SplitOptions, rng *rand.Rand) (ElectionStatus, Splitter) {
	if status, stop := checkStop(state, opts); stop {
		return status, nil
	}
	pool := state.Pool
	if pool == nil || pool.Size() == 0 {
		return NullHypothesisSet, nil
	}

	numHypo := max(opts.NumHypo, 1)
	var (
		best        *AxisSplitter
		bestScore   = math.Inf(1)
		left, right []float64
		usable      int
	)

	pool.Rewind()
	for usable < numHypo {
		axis, ok := pool.Draw(rng)
		if !ok {
			break
		}
		lo, hi := axisRange(points, state.Idx, axis)
		span := hi - lo
		if span <= 0 || span < opts.Converge {
			pool.DisqualifyCurrent()
			continue
		}
		usable++

		threshold := float32(lo + span*(0.025+0.95*rng.Float64()))
		var score float64
		switch opts.Score {
		case VarianceScore:
			left, right = left[:0], right[:0]
			for _, id := range state.Idx {
				v := float64(points[id][axis])
				if points[id][axis] < threshold {
					left = append(left, v)
				} else {
					right = append(right, v)
				}
			}
			score = sideVariance(left) + sideVariance(right)
		default:
			n := 0
			for _, id := range state.Idx {
				if points[id][axis] < threshold {
					n++
				}
			}
			score = math.Abs(float64(2*n - len(state.Idx)))
		}

		if score < bestScore {
			bestScore = score
			best = &AxisSplitter{Threshold: threshold, Axis: axis}
		}
	}

	if best == nil {
		return Converged, nil
	}
	return Success, best
}

// axisRange returns the smallest and largest coordinate on axis over idx.
func axisRange(points [][]float32, idx []int, axis int) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, id := range idx {
		v := float64(points[id][axis])
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func sideVariance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.Variance(xs, nil)
}
