package ranforest

import (
	"fmt"
	"math/rand/v2"
)

// ElectionStatus is the outcome of a kernel's attempt to split a node.
// Every status other than Success makes the node a leaf; none of them is an
// error.
type ElectionStatus int

const (
	// Success means a splitter was elected.
	Success ElectionStatus = iota
	// NodeSizeLimitReached means the node holds fewer than StopNum points.
	NodeSizeLimitReached
	// Converged means no candidate showed enough spread to split on.
	Converged
	// MaxDepthReached means the node sits at MaxDepth.
	MaxDepthReached
	// NullHypothesisSet means the node's sampling pool was empty on entry.
	NullHypothesisSet
)

func (s ElectionStatus) String() string {
	switch s {
	case Success:
		return "success"
	case NodeSizeLimitReached:
		return "node_size_limit_reached"
	case Converged:
		return "converged"
	case MaxDepthReached:
		return "max_depth_reached"
	case NullHypothesisSet:
		return "null_hypothesis_set"
	default:
		return fmt.Sprintf("ElectionStatus(%d)", int(s))
	}
}

// ScoreKind selects how the axis kernel ranks candidate splits.
type ScoreKind string

const (
	// BalanceScore prefers the split with the smallest |left - right| count.
	BalanceScore ScoreKind = "balance"
	// VarianceScore prefers the split with the smallest summed variance of
	// the two sides along the split axis.
	VarianceScore ScoreKind = "variance"
)

// SplitOptions tunes every kernel. Fields a kernel does not use are ignored.
type SplitOptions struct {
	// MaxDepth stops splitting at this depth. Negative means unlimited.
	MaxDepth int
	// StopNum is the smallest node size that may still be split.
	StopNum int
	// NumHypo is the number of candidate splits evaluated per node.
	NumHypo int
	// Converge is the smallest spread (coordinate range, projection range
	// or L1 distance) worth splitting on.
	Converge float64
	// Proportion sub-samples each tree's points when in (0, 1).
	Proportion float64
	// Score ranks candidates of the axis kernel.
	Score ScoreKind
	// ProjDim is the number of components a projection split spans.
	ProjDim int
}

// DefaultSplitOptions returns the options used when none are configured.
func DefaultSplitOptions() SplitOptions {
	return SplitOptions{
		MaxDepth:   -1,
		StopNum:    5,
		NumHypo:    10,
		Converge:   0,
		Proportion: 1,
		Score:      BalanceScore,
		ProjDim:    3,
	}
}

// SplitState is the per-node input of an election: the node's points (as
// indices into the data), its depth and, for pool-based kernels, the
// node's sampling pool.
type SplitState struct {
	Idx   []int
	Depth int
	Pool  *SamplingPool
}

// child returns the state for a child holding idx. The pool is copied so
// sibling subtrees disqualify independently.
func (s *SplitState) child(idx []int) SplitState {
	return SplitState{
		Idx:   idx,
		Depth: s.Depth + 1,
		Pool:  s.Pool.Clone(),
	}
}

// KernelKind names a splitting strategy.
type KernelKind string

const (
	AxisKernelKind         KernelKind = "axis"
	VantagePointKernelKind KernelKind = "vantage_point"
	ProjectionKernelKind   KernelKind = "projection"
)

// Kernel elects the splitter of a tree node.
//
// Elect may reorder nothing in points and must not keep references to
// state.Idx. It may disqualify ids in state.Pool; the forest hands each
// child a copy of the pool as it stands after the election. rng belongs to
// the calling tree and is never shared between goroutines.
type Kernel interface {
	Kind() KernelKind
	// NewPool returns the root sampling pool for a tree, or nil when the
	// kernel does not sample from a pool.
	NewPool(dim int) *SamplingPool
	Elect(points [][]float32, dim int, state *SplitState, opts *SplitOptions, rng *rand.Rand) (ElectionStatus, Splitter)
}

// Compile-time checks to ensure all kernels implement Kernel.
var (
	_ Kernel = AxisKernel{}
	_ Kernel = VantagePointKernel{}
	_ Kernel = ProjectionKernel{}
)

// NewKernel returns the kernel registered under kind.
func NewKernel(kind KernelKind) (Kernel, error) {
	switch kind {
	case AxisKernelKind:
		return AxisKernel{}, nil
	case VantagePointKernelKind:
		return VantagePointKernel{}, nil
	case ProjectionKernelKind:
		return ProjectionKernel{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKernelKind, kind)
	}
}

// checkStop applies the size and depth limits shared by all kernels.
func checkStop(state *SplitState, opts *SplitOptions) (ElectionStatus, bool) {
	if len(state.Idx) < opts.StopNum || len(state.Idx) < 2 {
		return NodeSizeLimitReached, true
	}
	if opts.MaxDepth >= 0 && state.Depth >= opts.MaxDepth {
		return MaxDepthReached, true
	}
	return Success, false
}
