package ranforest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrowConfig(kernel Kernel, order SplittingOrder) GrowConfig {
	cfg := DefaultGrowConfig()
	cfg.Kernel = kernel
	cfg.Order = order
	cfg.Seed = 11
	return cfg
}

func TestGrowValidation(t *testing.T) {
	points := uniformPoints(1, 10, 2)
	cfg := DefaultGrowConfig()

	tests := []struct {
		name    string
		trees   int
		points  [][]float32
		dim     int
		wantErr error
	}{
		{"no trees", 0, points, 2, ErrInvalidTreeCount},
		{"no points", 3, nil, 2, ErrEmptyData},
		{"ragged points", 3, append(uniformPoints(1, 3, 2), []float32{1}), 2, ErrDimensionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewForest().Grow(tt.trees, tt.points, tt.dim, cfg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Error(t, NewForest().Grow(1, points, 0, cfg))
}

func TestGrowPartitionsEveryTree(t *testing.T) {
	points := uniformPoints(2, 20, 3)

	for _, k := range allKernels {
		for _, order := range []SplittingOrder{DepthFirst, BreadthFirst} {
			t.Run(string(k.Kind())+"/"+order.String(), func(t *testing.T) {
				cfg := testGrowConfig(k, order)
				cfg.Split.StopNum = 2
				f := growForest(t, 4, points, cfg)

				require.Equal(t, 4, f.NumTrees())
				assert.Equal(t, 3, f.Dim())
				for tree := range f.NumTrees() {
					assert.NoError(t, f.ValidatePartition(tree, len(points)))

					root, err := f.Root(tree)
					require.NoError(t, err)
					for _, leaf := range leaves(f, root) {
						assert.NotEmpty(t, f.Store(leaf), "leaves are never empty")
					}
				}
			})
		}
	}
}

func TestGrowLevels(t *testing.T) {
	points := uniformPoints(3, 60, 2)
	f := growForest(t, 3, points, testGrowConfig(AxisKernel{}, BreadthFirst))

	for id := range f.NumNodes() {
		node := NodeID(id)
		if f.IsLeaf(node) {
			assert.Nil(t, f.Judge(node))
			continue
		}
		assert.NotNil(t, f.Judge(node))
		assert.Empty(t, f.Store(node))
		for _, child := range f.Children(node) {
			assert.Equal(t, f.Level(node)+1, f.Level(child))
		}
	}
	for tree := range 3 {
		root, _ := f.Root(tree)
		assert.Equal(t, 0, f.Level(root))
	}
}

func TestGrowTwoSeparatedClusters(t *testing.T) {
	centers := [][]float32{{0, 0}, {10, 10}}
	points, labels := gaussianBlobs(21, centers, 50, 0.1)

	cfg := testGrowConfig(AxisKernel{}, DepthFirst)
	cfg.Seed = 1
	cfg.Split.StopNum = 5
	// Each cluster spans well under 1 on both axes, so only the gap is
	// wide enough to split on.
	cfg.Split.Converge = 1
	f := growForest(t, 1, points, cfg)

	assert.Equal(t, 2, f.NumLeaves())
	root, _ := f.Root(0)
	for _, leaf := range leaves(f, root) {
		store := f.Store(leaf)
		require.Len(t, store, 50)
		for _, p := range store {
			assert.Equal(t, labels[store[0]], labels[p], "leaf mixes clusters")
		}
	}
}

func TestGrowMaxDepth(t *testing.T) {
	points := uniformPoints(4, 100, 2)
	cfg := testGrowConfig(AxisKernel{}, DepthFirst)
	cfg.Split.MaxDepth = 1
	f := growForest(t, 2, points, cfg)

	assert.Equal(t, 4, f.NumLeaves())
	depth, err := f.MaxDepth()
	require.NoError(t, err)
	assert.Equal(t, 2, depth)
}

func TestGrowSingleNodeTrees(t *testing.T) {
	points := uniformPoints(5, 4, 2)
	f := growForest(t, 3, points, testGrowConfig(AxisKernel{}, DepthFirst))

	assert.Equal(t, 3, f.NumNodes())
	assert.Equal(t, 3, f.NumLeaves())
	for tree := range 3 {
		depth, err := f.Depth(tree)
		require.NoError(t, err)
		assert.Equal(t, 1, depth)
	}
	_, err := f.Depth(3)
	assert.ErrorIs(t, err, ErrTreeOutOfRange)
}

func TestGrowProportion(t *testing.T) {
	points := uniformPoints(6, 40, 3)
	cfg := testGrowConfig(VantagePointKernel{}, DepthFirst)
	cfg.Split.Proportion = 0.5
	f := growForest(t, 3, points, cfg)

	for tree := range 3 {
		covered, err := f.TreeCoverage(tree)
		require.NoError(t, err)
		assert.EqualValues(t, 20, covered.GetCardinality())
		assert.Error(t, f.ValidatePartition(tree, len(points)))
	}
}

func TestGrowReproducible(t *testing.T) {
	points := uniformPoints(7, 80, 4)
	cfg := testGrowConfig(ProjectionKernel{}, DepthFirst)
	cfg.Workers = 1

	a := growForest(t, 3, points, cfg)
	b := growForest(t, 3, points, cfg)
	assertSameTable(t, a, b)

	// Any number of workers builds the same trees, though NodeIDs may
	// interleave differently.
	cfg.Workers = 3
	c := growForest(t, 3, points, cfg)
	assert.Equal(t, a.NumNodes(), c.NumNodes())
	for tree := range 3 {
		for i, p := range points {
			la, err := a.QueryTree(p, tree, NoLevelLimit)
			require.NoError(t, err)
			lc, err := c.QueryTree(p, tree, NoLevelLimit)
			require.NoError(t, err)
			assert.Equal(t, sortedStore(a, la), sortedStore(c, lc), "point %d tree %d", i, tree)
		}
	}
}

func assertSameTable(t *testing.T, a, b *Forest) {
	t.Helper()
	require.Equal(t, a.NumTrees(), b.NumTrees())
	require.Equal(t, a.NumNodes(), b.NumNodes())
	for tree := range a.NumTrees() {
		ra, _ := a.Root(tree)
		rb, _ := b.Root(tree)
		assert.Equal(t, ra, rb)
	}
	for id := range a.NumNodes() {
		node := NodeID(id)
		assert.Equal(t, a.Children(node), b.Children(node))
		assert.Equal(t, a.Store(node), b.Store(node))
		assert.Equal(t, a.Level(node), b.Level(node))
		if ja := a.Judge(node); ja != nil {
			assert.True(t, ja.Equal(b.Judge(node)), "judge of node %d", id)
		} else {
			assert.Nil(t, b.Judge(node))
		}
	}
}

func TestFoldPostOrderAndLevels(t *testing.T) {
	points := uniformPoints(8, 50, 3)
	f := growForest(t, 2, points, testGrowConfig(AxisKernel{}, DepthFirst))

	total := 0
	for tree := range 2 {
		root, _ := f.Root(tree)
		stored := FoldPostOrder(f, root,
			func(id NodeID) int { return len(f.Store(id)) },
			func(_ NodeID, kids []int) int {
				s := 0
				for _, k := range kids {
					s += k
				}
				return s
			})
		assert.Equal(t, len(points), stored)
		total += len(leaves(f, root))
	}
	assert.Equal(t, f.NumLeaves(), total)

	roots := f.CollectLevel(0)
	assert.Len(t, roots, 2)
	assert.Equal(t, 2, f.LevelSize(0))

	depth, err := f.MaxDepth()
	require.NoError(t, err)
	assert.Equal(t, f.NumLeaves(), f.LevelSize(depth))
	assert.Len(t, f.CollectLevel(depth+5), f.NumLeaves())
}

func TestPartition(t *testing.T) {
	points := [][]float32{{5}, {1}, {7}, {2}, {9}, {0}}
	labels := make([]int, len(points))

	idx := allIdx(len(points))
	bounds, ok := partition(points, idx, &AxisSplitter{Threshold: 4, Axis: 0}, labels)
	require.True(t, ok)
	assert.Equal(t, []int{0, 3, 6}, bounds)
	assert.ElementsMatch(t, []int{1, 3, 5}, idx[:3])
	assert.ElementsMatch(t, []int{0, 2, 4}, idx[3:])

	t.Run("one side empty", func(t *testing.T) {
		idx := allIdx(len(points))
		_, ok := partition(points, idx, &AxisSplitter{Threshold: 100, Axis: 0}, labels)
		assert.False(t, ok)
		_, ok = partition(points, idx, &AxisSplitter{Threshold: -1, Axis: 0}, labels)
		assert.False(t, ok)
	})

	t.Run("sub-range", func(t *testing.T) {
		idx := []int{4, 0, 2}
		bounds, ok := partition(points, idx, &AxisSplitter{Threshold: 6, Axis: 0}, labels)
		require.True(t, ok)
		assert.Equal(t, []int{0, 1, 3}, bounds)
		assert.Equal(t, 0, idx[0])
		assert.ElementsMatch(t, []int{4, 2}, idx[1:])
	})
}

func TestForestAccessorsOutOfRange(t *testing.T) {
	f := NewForest()
	_, err := f.Root(0)
	assert.ErrorIs(t, err, ErrTreeOutOfRange)
	assert.Nil(t, f.Children(3))
	assert.Nil(t, f.Store(-1))
	assert.Equal(t, -1, f.Level(0))
	assert.False(t, f.IsLeaf(0))
	_, err = f.MaxDepth()
	assert.ErrorIs(t, err, ErrNotGrown)
}
