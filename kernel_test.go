package ranforest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allIdx(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func constantPoints(n, dim int, v float32) [][]float32 {
	points := make([][]float32, n)
	for i := range points {
		points[i] = make([]float32, dim)
		for d := range points[i] {
			points[i][d] = v
		}
	}
	return points
}

func newState(k Kernel, n, dim int) *SplitState {
	return &SplitState{Idx: allIdx(n), Pool: k.NewPool(dim)}
}

var allKernels = []Kernel{AxisKernel{}, VantagePointKernel{}, ProjectionKernel{}}

func TestKernelStopConditions(t *testing.T) {
	points := uniformPoints(1, 20, 3)

	for _, k := range allKernels {
		t.Run(string(k.Kind()), func(t *testing.T) {
			opts := DefaultSplitOptions()

			small := newState(k, 4, 3)
			status, judge := k.Elect(points, 3, small, &opts, newStreamRand(1, 0))
			assert.Equal(t, NodeSizeLimitReached, status)
			assert.Nil(t, judge)

			deep := newState(k, 20, 3)
			deep.Depth = 2
			opts.MaxDepth = 2
			status, _ = k.Elect(points, 3, deep, &opts, newStreamRand(1, 0))
			assert.Equal(t, MaxDepthReached, status)

			opts.MaxDepth = -1
			status, judge = k.Elect(points, 3, deep, &opts, newStreamRand(1, 0))
			assert.Equal(t, Success, status)
			require.NotNil(t, judge)
		})
	}
}

func TestKernelConvergedOnIdenticalPoints(t *testing.T) {
	points := constantPoints(10, 3, 4)
	for _, k := range allKernels {
		t.Run(string(k.Kind()), func(t *testing.T) {
			opts := DefaultSplitOptions()
			state := newState(k, 10, 3)
			status, judge := k.Elect(points, 3, state, &opts, newStreamRand(2, 0))
			assert.Equal(t, Converged, status)
			assert.Nil(t, judge)
		})
	}
}

func TestPoolKernelsNullHypothesis(t *testing.T) {
	points := constantPoints(10, 3, 4)
	for _, k := range []Kernel{AxisKernel{}, ProjectionKernel{}} {
		t.Run(string(k.Kind()), func(t *testing.T) {
			opts := DefaultSplitOptions()
			state := newState(k, 10, 3)

			status, _ := k.Elect(points, 3, state, &opts, newStreamRand(3, 0))
			require.Equal(t, Converged, status)
			assert.Zero(t, state.Pool.Size(), "collapsed dimensions are disqualified")

			status, _ = k.Elect(points, 3, state, &opts, newStreamRand(3, 0))
			assert.Equal(t, NullHypothesisSet, status)
		})
	}
}

func TestAxisKernelDisqualifiesCollapsedAxis(t *testing.T) {
	// Axis 0 is constant, axis 1 spans [0, 9].
	points := make([][]float32, 10)
	for i := range points {
		points[i] = []float32{1, float32(i)}
	}

	for _, score := range []ScoreKind{BalanceScore, VarianceScore} {
		t.Run(string(score), func(t *testing.T) {
			opts := DefaultSplitOptions()
			opts.Score = score
			state := newState(AxisKernel{}, 10, 2)

			status, judge := AxisKernel{}.Elect(points, 2, state, &opts, newStreamRand(4, 0))
			require.Equal(t, Success, status)
			axis, ok := judge.(*AxisSplitter)
			require.True(t, ok)
			assert.Equal(t, 1, axis.Axis)
			assert.GreaterOrEqual(t, axis.Threshold, float32(9*0.025))
			assert.LessOrEqual(t, axis.Threshold, float32(9*0.975))
			assert.Equal(t, []int{1}, state.Pool.Active())
		})
	}
}

func TestAxisKernelConvergeThreshold(t *testing.T) {
	points := make([][]float32, 10)
	for i := range points {
		points[i] = []float32{float32(i) / 10}
	}
	opts := DefaultSplitOptions()
	opts.Converge = 1 // range is 0.9

	state := newState(AxisKernel{}, 10, 1)
	status, _ := AxisKernel{}.Elect(points, 1, state, &opts, newStreamRand(5, 0))
	assert.Equal(t, Converged, status)
}

func TestVantagePointKernel(t *testing.T) {
	points := uniformPoints(6, 30, 4)
	opts := DefaultSplitOptions()
	state := newState(VantagePointKernel{}, 30, 4)
	assert.Nil(t, state.Pool)

	status, judge := VantagePointKernel{}.Elect(points, 4, state, &opts, newStreamRand(6, 0))
	require.Equal(t, Success, status)
	vp, ok := judge.(*DistanceSplitter)
	require.True(t, ok)
	assert.Contains(t, points, vp.Vantage, "vantage point is one of the node's points")
	assert.Greater(t, vp.Threshold, 0.0)

	left := 0
	for _, p := range points {
		if vp.Branch(p) == 0 {
			left++
		}
	}
	assert.Greater(t, left, 0)
	assert.Less(t, left, len(points))

	t.Run("converge above spread", func(t *testing.T) {
		opts := DefaultSplitOptions()
		opts.Converge = 100
		status, _ := VantagePointKernel{}.Elect(points, 4, newState(VantagePointKernel{}, 30, 4), &opts, newStreamRand(6, 0))
		assert.Equal(t, Converged, status)
	})
}

func TestProjectionKernel(t *testing.T) {
	points := uniformPoints(7, 40, 6)
	opts := DefaultSplitOptions()
	opts.ProjDim = 3
	state := newState(ProjectionKernel{}, 40, 6)

	status, judge := ProjectionKernel{}.Elect(points, 6, state, &opts, newStreamRand(7, 0))
	require.Equal(t, Success, status)
	sub, ok := judge.(*SubspaceSplitter)
	require.True(t, ok)
	require.Len(t, sub.Components, 3)
	require.Len(t, sub.Axis, 3)

	var norm float64
	for _, v := range sub.Axis {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1, math.Sqrt(norm), 1e-5)

	left := 0
	for _, p := range points {
		if sub.Branch(p) == 0 {
			left++
		}
	}
	assert.Greater(t, left, 0)
	assert.Less(t, left, len(points))
}

func TestNewKernel(t *testing.T) {
	for _, kind := range []KernelKind{AxisKernelKind, VantagePointKernelKind, ProjectionKernelKind} {
		k, err := NewKernel(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, k.Kind())
	}
	_, err := NewKernel("largest_gap")
	assert.ErrorIs(t, err, ErrUnknownKernelKind)
}

func TestElectionStatusString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "null_hypothesis_set", NullHypothesisSet.String())
	assert.Equal(t, "ElectionStatus(42)", ElectionStatus(42).String())
}
