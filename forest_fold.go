package ranforest

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
)

// FoldPostOrder folds the subtree under root bottom-up without recursion.
// leaf maps a leaf to a value; internal combines a node with the values of
// its children, given in child order. The forest is read-locked for the
// whole fold, so the callbacks must not call Grow or Read.
//
// Example (count the leaves of tree 0):
//
//	root, _ := forest.Root(0)
//	n := FoldPostOrder(forest, root,
//	    func(NodeID) int { return 1 },
//	    func(_ NodeID, kids []int) int { s := 0; for _, k := range kids { s += k }; return s })
func FoldPostOrder[T any](f *Forest, root NodeID, leaf func(NodeID) T, internal func(NodeID, []T) T) T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return foldPostOrder(&f.table, root, leaf, internal)
}

func foldPostOrder[T any](t *nodeTable, root NodeID, leaf func(NodeID) T, internal func(NodeID, []T) T) T {
	type frame struct {
		id   NodeID
		next int
		acc  []T
	}

	var result T
	stack := []frame{{id: root}}
	deliver := func(v T) {
		if len(stack) == 0 {
			result = v
			return
		}
		parent := &stack[len(stack)-1]
		parent.acc = append(parent.acc, v)
	}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		kids := t.children[top.id]
		switch {
		case len(kids) == 0:
			id := top.id
			stack = stack[:len(stack)-1]
			deliver(leaf(id))
		case top.next < len(kids):
			child := kids[top.next]
			top.next++
			stack = append(stack, frame{id: child})
		default:
			id, acc := top.id, top.acc
			stack = stack[:len(stack)-1]
			deliver(internal(id, acc))
		}
	}
	return result
}

// Depth returns the number of levels of tree treeID; a lone root has depth 1.
func (f *Forest) Depth(treeID int) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if treeID < 0 || treeID >= len(f.roots) {
		return 0, ErrTreeOutOfRange
	}
	return f.depth(f.roots[treeID]), nil
}

// MaxDepth returns the largest Depth over all trees.
func (f *Forest) MaxDepth() (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.roots) == 0 {
		return 0, ErrNotGrown
	}
	deepest := 0
	for _, root := range f.roots {
		deepest = max(deepest, f.depth(root))
	}
	return deepest, nil
}

func (f *Forest) depth(root NodeID) int {
	return foldPostOrder(&f.table, root,
		func(NodeID) int { return 1 },
		func(_ NodeID, kids []int) int {
			d := 0
			for _, k := range kids {
				d = max(d, k)
			}
			return d + 1
		})
}

// LevelSize returns how many nodes CollectLevel(lv) would return.
func (f *Forest) LevelSize(lv int) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for id := range f.table.levels {
		if f.atLevel(NodeID(id), lv) {
			n++
		}
	}
	return n
}

// CollectLevel returns the nodes a query with level limit lv can land on:
// nodes at level lv and leaves above it.
func (f *Forest) CollectLevel(lv int) []NodeID {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var nodes []NodeID
	for id := range f.table.levels {
		if f.atLevel(NodeID(id), lv) {
			nodes = append(nodes, NodeID(id))
		}
	}
	return nodes
}

func (f *Forest) atLevel(id NodeID, lv int) bool {
	level := f.table.levels[id]
	return level == lv || (level < lv && len(f.table.children[id]) == 0)
}

// TreeCoverage returns the union of the leaf stores of tree treeID. A point
// stored in two leaves is reported as ErrCorruptTree.
func (f *Forest) TreeCoverage(treeID int) (*roaring.Bitmap, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if treeID < 0 || treeID >= len(f.roots) {
		return nil, ErrTreeOutOfRange
	}
	return f.coverage(f.roots[treeID])
}

func (f *Forest) coverage(root NodeID) (*roaring.Bitmap, error) {
	bm := roaring.New()
	stack := []NodeID{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = append(stack, f.table.children[id]...)
		for _, p := range f.table.stores[id] {
			if p < 0 || !bm.CheckedAdd(uint32(p)) {
				return nil, fmt.Errorf("point %d stored twice or invalid under node %d: %w", p, root, ErrCorruptTree)
			}
		}
	}
	return bm, nil
}

// ValidatePartition checks that the leaves of tree treeID hold each of the
// points 0..n-1 exactly once. Trees grown with Proportion below one hold a
// subset and do not validate against the full data size.
func (f *Forest) ValidatePartition(treeID, n int) error {
	bm, err := f.TreeCoverage(treeID)
	if err != nil {
		return err
	}
	if got := bm.GetCardinality(); got != uint64(n) {
		return fmt.Errorf("tree %d holds %d distinct points, want %d", treeID, got, n)
	}
	if n > 0 && bm.Maximum() >= uint32(n) {
		return fmt.Errorf("tree %d holds point %d, want indices below %d", treeID, bm.Maximum(), n)
	}
	return nil
}
