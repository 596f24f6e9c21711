package ranforest

import (
	"sync"

	"github.com/rs/zerolog"
)

// NodeID addresses a node in the forest's node table. IDs are dense, start
// at zero and are shared by all trees of a forest.
type NodeID int

// NoLevelLimit disables the level limit of queries.
const NoLevelLimit = -1

// SplittingOrder selects how a tree's work-list is consumed while growing.
type SplittingOrder int

const (
	// DepthFirst pops the most recently pushed node.
	DepthFirst SplittingOrder = iota
	// BreadthFirst pops the oldest pending node.
	BreadthFirst
)

func (o SplittingOrder) String() string {
	if o == BreadthFirst {
		return "bfs"
	}
	return "dfs"
}

// nodeTable is the flat, append-only storage of every node in a forest.
// Records are parallel slices indexed by NodeID. Appends take mu, so trees
// may grow concurrently; a record is written once by the tree that owns it
// and never moved.
type nodeTable struct {
	mu       sync.Mutex
	children [][]NodeID
	judges   []Splitter
	levels   []int
	stores   [][]int
}

func (t *nodeTable) reset() {
	t.children = nil
	t.judges = nil
	t.levels = nil
	t.stores = nil
}

func (t *nodeTable) len() int {
	return len(t.levels)
}

// reserve appends an empty record at level and returns its id.
func (t *nodeTable) reserve(level int) NodeID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appendLocked(level)
}

func (t *nodeTable) appendLocked(level int) NodeID {
	id := NodeID(len(t.levels))
	t.children = append(t.children, nil)
	t.judges = append(t.judges, nil)
	t.levels = append(t.levels, level)
	t.stores = append(t.stores, nil)
	return id
}

// split appends n consecutive child records at level and makes them the
// children of parent under judge.
func (t *nodeTable) split(parent NodeID, judge Splitter, level, n int) []NodeID {
	ids := make([]NodeID, n)
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range ids {
		ids[k] = t.appendLocked(level)
	}
	t.judges[parent] = judge
	t.children[parent] = ids
	return ids
}

// commitLeaf records the points held by leaf id.
func (t *nodeTable) commitLeaf(id NodeID, idx []int) {
	store := append([]int(nil), idx...)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stores[id] = store
}

// Forest is a collection of randomized space-partitioning trees over one
// data set, stored in a single node table.
//
// Grow and Read replace the forest's content and must not run concurrently
// with other calls; every other method is safe for concurrent use.
type Forest struct {
	mu    sync.RWMutex
	table nodeTable
	roots []NodeID
	dim   int
}

// NewForest returns an empty forest.
func NewForest() *Forest {
	return &Forest{}
}

// NumTrees returns the number of trees.
func (f *Forest) NumTrees() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.roots)
}

// NumNodes returns the number of nodes over all trees.
func (f *Forest) NumNodes() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.table.len()
}

// NumLeaves returns the number of leaves over all trees.
func (f *Forest) NumLeaves() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, c := range f.table.children {
		if len(c) == 0 {
			n++
		}
	}
	return n
}

// Dim returns the dimensionality of the points the forest was built on.
func (f *Forest) Dim() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dim
}

// Root returns the root of tree treeID.
func (f *Forest) Root(treeID int) (NodeID, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if treeID < 0 || treeID >= len(f.roots) {
		return 0, ErrTreeOutOfRange
	}
	return f.roots[treeID], nil
}

func (f *Forest) valid(id NodeID) bool {
	return id >= 0 && int(id) < f.table.len()
}

// Children returns a copy of the children of id, empty for leaves and
// unknown ids.
func (f *Forest) Children(id NodeID) []NodeID {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.valid(id) {
		return nil
	}
	return append([]NodeID(nil), f.table.children[id]...)
}

// Store returns a copy of the point indices held by leaf id, empty for
// internal nodes.
func (f *Forest) Store(id NodeID) []int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.valid(id) {
		return nil
	}
	return append([]int(nil), f.table.stores[id]...)
}

// Level returns the depth of id within its tree, or -1 for unknown ids.
func (f *Forest) Level(id NodeID) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.valid(id) {
		return -1
	}
	return f.table.levels[id]
}

// Judge returns the splitter of internal node id, nil for leaves.
func (f *Forest) Judge(id NodeID) Splitter {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.valid(id) {
		return nil
	}
	return f.table.judges[id]
}

// IsLeaf reports whether id is a leaf.
func (f *Forest) IsLeaf(id NodeID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.valid(id) && len(f.table.children[id]) == 0
}

// Summary logs the shape of the forest at info level.
func (f *Forest) Summary(logger zerolog.Logger) {
	depth, _ := f.MaxDepth()
	logger.Info().
		Int("trees", f.NumTrees()).
		Int("nodes", f.NumNodes()).
		Int("leaves", f.NumLeaves()).
		Int("max_depth", depth).
		Int("dim", f.Dim()).
		Msg("forest summary")
}
