package ranforest

import "math/rand/v2"

// SamplingPool draws candidate ids without replacement and lets the caller
// permanently remove the candidate it just drew.
//
// The pool holds a permutation of its universe. The prefix [0, size) is the
// active set; disqualified ids are swapped past it. A draw session starts
// with Rewind and ends when Draw reports exhaustion. Within a session every
// active id is returned at most once.
//
// Kernels keep one pool per tree node. Children receive a Clone of the
// parent pool, so a dimension disqualified at a node stays disqualified in
// its whole subtree while siblings evolve independently.
//
// A SamplingPool is not safe for concurrent use.
type SamplingPool struct {
	items  []int
	size   int
	cursor int
}

// NewSamplingPool creates a pool over the universe {0, ..., n-1}.
func NewSamplingPool(n int) *SamplingPool {
	p := &SamplingPool{}
	p.Reset(n)
	return p
}

// NewSamplingPoolFrom creates a pool over an explicit universe. The slice is
// copied.
func NewSamplingPoolFrom(universe []int) *SamplingPool {
	p := &SamplingPool{}
	p.ResetUniverse(universe)
	return p
}

// Reset restores the pool to the universe {0, ..., n-1} and rewinds it.
func (p *SamplingPool) Reset(n int) {
	if n < 0 {
		n = 0
	}
	p.items = make([]int, n)
	for i := range p.items {
		p.items[i] = i
	}
	p.size = n
	p.cursor = -1
}

// ResetUniverse restores the pool to the given universe and rewinds it.
func (p *SamplingPool) ResetUniverse(universe []int) {
	p.items = append([]int(nil), universe...)
	p.size = len(p.items)
	p.cursor = -1
}

// Size returns the number of ids still eligible.
func (p *SamplingPool) Size() int {
	return p.size
}

// Rewind starts a new draw session over the active ids.
func (p *SamplingPool) Rewind() {
	p.cursor = -1
}

// Draw returns the next id of the session, chosen uniformly among the ids
// not yet drawn in it. The boolean is false once the session is exhausted.
func (p *SamplingPool) Draw(rng *rand.Rand) (int, bool) {
	if p.cursor+1 >= p.size {
		p.cursor = p.size
		return -1, false
	}
	p.cursor++
	j := p.cursor + rng.IntN(p.size-p.cursor)
	p.items[p.cursor], p.items[j] = p.items[j], p.items[p.cursor]
	return p.items[p.cursor], true
}

// DisqualifyCurrent removes the most recently drawn id from the pool for
// good. The id that takes its slot has not been drawn yet and stays
// reachable in the current session. Calling it without a current draw is a
// no-op.
func (p *SamplingPool) DisqualifyCurrent() {
	if p.cursor < 0 || p.cursor >= p.size {
		return
	}
	last := p.size - 1
	p.items[p.cursor], p.items[last] = p.items[last], p.items[p.cursor]
	p.size--
	p.cursor--
}

// Active returns a copy of the eligible ids in their current pool order.
func (p *SamplingPool) Active() []int {
	return append([]int(nil), p.items[:p.size]...)
}

// Clone returns an independent pool with the same eligible ids, rewound.
// Cloning a nil pool returns nil.
func (p *SamplingPool) Clone() *SamplingPool {
	if p == nil {
		return nil
	}
	return &SamplingPool{
		items:  append([]int(nil), p.items[:p.size]...),
		size:   p.size,
		cursor: -1,
	}
}
