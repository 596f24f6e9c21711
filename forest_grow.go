package ranforest

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// GrowConfig controls how a forest is grown.
type GrowConfig struct {
	// Kernel elects splitters. Nil means AxisKernel.
	Kernel Kernel
	// Order is the work-list discipline of every tree.
	Order SplittingOrder
	// Split is handed to the kernel at every node.
	Split SplitOptions
	// Seed makes growth reproducible: tree i draws from stream i of Seed.
	// Zero picks a random seed.
	Seed uint64
	// Workers bounds the number of trees built at once. Zero or less
	// means GOMAXPROCS.
	Workers int
	// Logger receives progress events.
	Logger zerolog.Logger
}

// DefaultGrowConfig returns an axis-kernel, depth-first configuration with
// default split options and logging disabled.
func DefaultGrowConfig() GrowConfig {
	return GrowConfig{
		Kernel: AxisKernel{},
		Order:  DepthFirst,
		Split:  DefaultSplitOptions(),
		Logger: zerolog.Nop(),
	}
}

// Grow discards the forest's content and builds numTrees trees over points.
//
// Every point must have exactly dim coordinates. Each tree starts from its
// own random permutation of the points, truncated to Proportion of them
// when Proportion is in (0, 1), and splits nodes until the kernel declines.
// Trees are built concurrently; within a tree, nodes are processed in
// cfg.Order.
//
// Example:
//
//	forest := NewForest()
//	cfg := DefaultGrowConfig()
//	cfg.Seed = 42
//	if err := forest.Grow(10, points, 8, cfg); err != nil {
//	    log.Fatal(err)
//	}
func (f *Forest) Grow(numTrees int, points [][]float32, dim int, cfg GrowConfig) error {
	if numTrees < 1 {
		return ErrInvalidTreeCount
	}
	if len(points) == 0 {
		return ErrEmptyData
	}
	if dim <= 0 {
		return fmt.Errorf("dimension must be positive: %d", dim)
	}
	for i, p := range points {
		if len(p) != dim {
			return fmt.Errorf("point %d has %d coordinates, want %d: %w", i, len(p), dim, ErrDimensionMismatch)
		}
	}

	kernel := cfg.Kernel
	if kernel == nil {
		kernel = AxisKernel{}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	perTree := len(points)
	if p := cfg.Split.Proportion; p > 0 && p < 1 {
		perTree = max(int(float64(len(points))*p), 1)
	}
	workers := min(resolveWorkers(cfg.Workers), numTrees)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.table.reset()
	f.dim = dim
	f.roots = make([]NodeID, numTrees)

	logger := cfg.Logger
	logger.Info().
		Int("trees", numTrees).
		Int("points", len(points)).
		Int("points_per_tree", perTree).
		Int("dim", dim).
		Str("kernel", string(kernel.Kind())).
		Str("order", cfg.Order.String()).
		Int("workers", workers).
		Msg("growing forest")
	start := time.Now()

	jobs := make(chan int)
	var done atomic.Int64
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			labels := make([]int, len(points))
			for tree := range jobs {
				rng := newStreamRand(seed, uint64(tree))
				idx := randPerm(rng, len(points), perTree)
				opts := cfg.Split
				f.roots[tree] = f.seed(points, idx, kernel, cfg.Order, &opts, rng, labels)
				logger.Debug().
					Int("tree", tree).
					Int64("done", done.Add(1)).
					Int("total", numTrees).
					Msg("tree grown")
			}
		}()
	}
	for tree := range numTrees {
		jobs <- tree
	}
	close(jobs)
	wg.Wait()

	logger.Info().
		Int("nodes", f.table.len()).
		Dur("elapsed", time.Since(start)).
		Msg("forest grown")
	return nil
}

type workItem struct {
	id    NodeID
	state SplitState
}

// seed grows one tree over idx and returns its root. idx is permuted in
// place. labels is scratch space indexed by point.
func (f *Forest) seed(points [][]float32, idx []int, kernel Kernel, order SplittingOrder,
	opts *SplitOptions, rng *rand.Rand, labels []int) NodeID {
	root := f.table.reserve(0)
	work := []workItem{{
		id:    root,
		state: SplitState{Idx: idx, Depth: 0, Pool: kernel.NewPool(f.dim)},
	}}

	head := 0
	for head < len(work) {
		var item workItem
		if order == BreadthFirst {
			item = work[head]
			work[head] = workItem{}
			head++
		} else {
			item = work[len(work)-1]
			work = work[:len(work)-1]
		}

		status, judge := kernel.Elect(points, f.dim, &item.state, opts, rng)
		if status == Success && judge != nil {
			if bounds, ok := partition(points, item.state.Idx, judge, labels); ok {
				ids := f.table.split(item.id, judge, item.state.Depth+1, len(bounds)-1)
				for k, id := range ids {
					sub := item.state.Idx[bounds[k]:bounds[k+1]]
					work = append(work, workItem{id: id, state: item.state.child(sub)})
				}
				continue
			}
		}
		f.table.commitLeaf(item.id, item.state.Idx)
	}
	return root
}

// partition labels every point of idx with judge and reorders idx in place
// so that each branch occupies a contiguous range, branch k being
// idx[bounds[k]:bounds[k+1]]. It reports false, leaving the order
// unspecified, when fewer than two branches are populated or any branch
// below the largest label is empty.
func partition(points [][]float32, idx []int, judge Splitter, labels []int) (bounds []int, ok bool) {
	maxLabel := 0
	for _, p := range idx {
		l := judge.Branch(points[p])
		labels[p] = l
		maxLabel = max(maxLabel, l)
	}
	if maxLabel == 0 {
		return nil, false
	}

	bounds = make([]int, maxLabel+2)
	for _, p := range idx {
		bounds[labels[p]+1]++
	}
	for k := 1; k <= maxLabel+1; k++ {
		if bounds[k] == 0 {
			return nil, false
		}
		bounds[k] += bounds[k-1]
	}

	next := append([]int(nil), bounds[:maxLabel+1]...)
	for k := 0; k <= maxLabel; k++ {
		i := next[k]
		for i < bounds[k+1] {
			l := labels[idx[i]]
			if l == k {
				i++
				continue
			}
			j := next[l]
			next[l]++
			idx[i], idx[j] = idx[j], idx[i]
		}
		next[k] = i
	}
	return bounds, true
}
