package ranforest

import (
	"container/heap"
	"slices"
)

// candidate is a cluster id paired with its distance to a point.
type candidate struct {
	id       int
	distance float64
}

// maxHeap keeps the farthest candidate on top.
type maxHeap []candidate

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return h[i].distance > h[j].distance }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *maxHeap) Push(x interface{}) {
	*h = append(*h, x.(candidate))
}

func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// nearestK retains the k candidates with the smallest distances.
type nearestK struct {
	k int
	h maxHeap
}

func newNearestK(k int) *nearestK {
	return &nearestK{k: k, h: make(maxHeap, 0, k)}
}

func (n *nearestK) reset() {
	n.h = n.h[:0]
}

// offer considers c; it is kept when fewer than k candidates are held or
// it is closer than the farthest held one.
func (n *nearestK) offer(c candidate) {
	if len(n.h) < n.k {
		heap.Push(&n.h, c)
		return
	}
	if n.k > 0 && c.distance < n.h[0].distance {
		n.h[0] = c
		heap.Fix(&n.h, 0)
	}
}

// sorted returns the held candidates nearest first. Ties keep id order.
func (n *nearestK) sorted() []candidate {
	out := slices.Clone([]candidate(n.h))
	slices.SortFunc(out, func(a, b candidate) int {
		switch {
		case a.distance < b.distance:
			return -1
		case a.distance > b.distance:
			return 1
		default:
			return a.id - b.id
		}
	})
	return out
}
