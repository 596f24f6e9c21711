package ranforest

import (
	"fmt"
	"io"
	"slices"

	"github.com/RoaringBitmap/roaring"
)

// Edge is one weighted adjacency entry. Peer is the vertex on the other side.
type Edge struct {
	Peer   int
	Weight float64
}

// Bipartite is a weighted graph between an A side (data points) and a B side
// (tree nodes or clusters). Every edge is stored twice, once in each
// direction, with the same weight. Vertex sets grow on demand and parallel
// edges are kept.
//
// A Bipartite is not safe for concurrent mutation.
type Bipartite struct {
	fromA [][]Edge
	toB   [][]Edge
}

// NewBipartite creates a graph with the given vertex counts and no edges.
func NewBipartite(sizeA, sizeB int) *Bipartite {
	return &Bipartite{
		fromA: make([][]Edge, max(sizeA, 0)),
		toB:   make([][]Edge, max(sizeB, 0)),
	}
}

// Add inserts the edge (a, b, weight), growing either side when a or b is
// past its current size.
func (g *Bipartite) Add(a, b int, weight float64) {
	if a < 0 || b < 0 {
		return
	}
	if a >= len(g.fromA) {
		g.fromA = append(g.fromA, make([][]Edge, a+1-len(g.fromA))...)
	}
	if b >= len(g.toB) {
		g.toB = append(g.toB, make([][]Edge, b+1-len(g.toB))...)
	}
	g.fromA[a] = append(g.fromA[a], Edge{Peer: b, Weight: weight})
	g.toB[b] = append(g.toB[b], Edge{Peer: a, Weight: weight})
}

// From returns the edges leaving A vertex a. The slice is shared with the
// graph, so weights can be edited in place; such edits do not reach the
// mirrored entry returned by To.
func (g *Bipartite) From(a int) []Edge {
	if a < 0 || a >= len(g.fromA) {
		return nil
	}
	return g.fromA[a]
}

// To returns the edges reaching B vertex b, shared the same way as From.
func (g *Bipartite) To(b int) []Edge {
	if b < 0 || b >= len(g.toB) {
		return nil
	}
	return g.toB[b]
}

// SizeA returns the number of A vertices.
func (g *Bipartite) SizeA() int { return len(g.fromA) }

// SizeB returns the number of B vertices.
func (g *Bipartite) SizeB() int { return len(g.toB) }

// NumEdges returns the number of edges, counting each once.
func (g *Bipartite) NumEdges() int {
	n := 0
	for _, edges := range g.fromA {
		n += len(edges)
	}
	return n
}

// Clear removes every edge. With keepSizes the vertex counts survive,
// otherwise both sides shrink to zero.
func (g *Bipartite) Clear(keepSizes bool) {
	if !keepSizes {
		g.fromA = g.fromA[:0]
		g.toB = g.toB[:0]
		return
	}
	for i := range g.fromA {
		g.fromA[i] = nil
	}
	for i := range g.toB {
		g.toB[i] = nil
	}
}

// PeersFrom returns the distinct B vertices adjacent to a.
func (g *Bipartite) PeersFrom(a int) *roaring.Bitmap {
	return peerBitmap(g.From(a))
}

// PeersTo returns the distinct A vertices adjacent to b.
func (g *Bipartite) PeersTo(b int) *roaring.Bitmap {
	return peerBitmap(g.To(b))
}

// ActiveB returns the B vertices that have at least one edge.
func (g *Bipartite) ActiveB() *roaring.Bitmap {
	bm := roaring.New()
	for b, edges := range g.toB {
		if len(edges) > 0 {
			bm.Add(uint32(b))
		}
	}
	return bm
}

func peerBitmap(edges []Edge) *roaring.Bitmap {
	bm := roaring.New()
	for _, e := range edges {
		bm.Add(uint32(e.Peer))
	}
	return bm
}

// MedianContainmentA returns the median out-degree over A vertices.
func (g *Bipartite) MedianContainmentA() int {
	return medianDegree(g.fromA)
}

// MedianContainmentB returns the median in-degree over B vertices.
func (g *Bipartite) MedianContainmentB() int {
	return medianDegree(g.toB)
}

func medianDegree(adj [][]Edge) int {
	if len(adj) == 0 {
		return 0
	}
	degrees := make([]int, len(adj))
	for i, edges := range adj {
		degrees[i] = len(edges)
	}
	slices.Sort(degrees)
	return degrees[len(degrees)/2]
}

// WriteTo serializes the graph.
//
// Format:
//   - magic: "BIPG" (4 bytes)
//   - version: uint32
//   - sizeA, sizeB: uint32
//   - for each A vertex: degree uint32, then degree × (peer uint32, weight float64)
//
// The B side is implied by the mirror and rebuilt on read.
func (g *Bipartite) WriteTo(w io.Writer) (int64, error) {
	bw := &binWriter{w: w}
	bw.put([4]byte{'B', 'I', 'P', 'G'})
	bw.put(uint32(1))
	bw.put(uint32(len(g.fromA)))
	bw.put(uint32(len(g.toB)))
	for _, edges := range g.fromA {
		bw.put(uint32(len(edges)))
		for _, e := range edges {
			bw.put(uint32(e.Peer))
			bw.put(e.Weight)
		}
	}
	if bw.err != nil {
		return bw.n, fmt.Errorf("failed to write bipartite graph: %w", bw.err)
	}
	return bw.n, nil
}

// ReadFrom replaces the graph with one previously written by WriteTo.
func (g *Bipartite) ReadFrom(r io.Reader) (int64, error) {
	br := &binReader{r: r, corrupt: ErrCorruptGraph}

	var magic [4]byte
	br.get(&magic)
	if br.err != nil {
		return br.n, fmt.Errorf("failed to read magic number: %w", br.err)
	}
	if magic != [4]byte{'B', 'I', 'P', 'G'} {
		return br.n, fmt.Errorf("invalid magic number: expected 'BIPG', got '%s': %w", magic[:], ErrCorruptGraph)
	}

	var version, sizeA, sizeB uint32
	br.get(&version)
	br.get(&sizeA)
	br.get(&sizeB)
	if br.err != nil {
		return br.n, fmt.Errorf("failed to read header: %w", br.err)
	}
	if version != 1 {
		return br.n, fmt.Errorf("unsupported version %d: %w", version, ErrCorruptGraph)
	}
	if sizeA > maxEncodedLen || sizeB > maxEncodedLen {
		return br.n, fmt.Errorf("invalid sizes %d x %d: %w", sizeA, sizeB, ErrCorruptGraph)
	}

	out := NewBipartite(int(sizeA), int(sizeB))
	for a := 0; a < int(sizeA); a++ {
		var degree uint32
		br.get(&degree)
		if br.err != nil {
			return br.n, fmt.Errorf("failed to read degree of %d: %w", a, br.err)
		}
		for range degree {
			var peer uint32
			var weight float64
			br.get(&peer)
			br.get(&weight)
			if br.err != nil {
				return br.n, fmt.Errorf("failed to read edge of %d: %w", a, br.err)
			}
			if peer >= sizeB {
				return br.n, fmt.Errorf("peer %d outside B side of %d: %w", peer, sizeB, ErrCorruptGraph)
			}
			out.Add(a, int(peer), weight)
		}
	}

	*g = *out
	return br.n, nil
}
