package ranforest

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

// gaussianBlobs draws perCluster points around each center with standard
// deviation sigma. labels[i] is the center point i was drawn around.
func gaussianBlobs(seed uint64, centers [][]float32, perCluster int, sigma float64) (points [][]float32, labels []int) {
	rng := newStreamRand(seed, 0)
	for c, center := range centers {
		for range perCluster {
			p := make([]float32, len(center))
			for d := range p {
				p[d] = center[d] + float32(rng.NormFloat64()*sigma)
			}
			points = append(points, p)
			labels = append(labels, c)
		}
	}
	return points, labels
}

// uniformPoints draws n points uniformly from [0, 1)^dim.
func uniformPoints(seed uint64, n, dim int) [][]float32 {
	rng := rand.New(rand.NewPCG(seed, 1))
	points := make([][]float32, n)
	for i := range points {
		points[i] = make([]float32, dim)
		for d := range points[i] {
			points[i][d] = rng.Float32()
		}
	}
	return points
}

func growForest(t *testing.T, numTrees int, points [][]float32, cfg GrowConfig) *Forest {
	t.Helper()
	f := NewForest()
	require.NoError(t, f.Grow(numTrees, points, len(points[0]), cfg))
	return f
}

// leaves returns every leaf under root.
func leaves(f *Forest, root NodeID) []NodeID {
	return FoldPostOrder(f, root,
		func(id NodeID) []NodeID { return []NodeID{id} },
		func(_ NodeID, kids [][]NodeID) []NodeID { return slices.Concat(kids...) })
}

func sortedStore(f *Forest, id NodeID) []int {
	s := f.Store(id)
	slices.Sort(s)
	return s
}
