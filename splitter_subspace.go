package ranforest

import (
	"fmt"
	"io"
	"slices"

	"github.com/viterin/vek/vek32"
)

// SubspaceSplitter projects a point onto Axis within the coordinate
// subspace named by Components and sends it left when the projection is
// below Threshold. Components and Axis have equal length.
type SubspaceSplitter struct {
	Threshold  float32
	Components []int
	Axis       []float32
}

func (s *SubspaceSplitter) Kind() SplitterKind { return SubspaceSplitterKind }

func (s *SubspaceSplitter) Branches() int { return 2 }

// Project returns the dot product of the point's selected components with
// Axis.
func (s *SubspaceSplitter) Project(p []float32) float32 {
	sub := make([]float32, len(s.Components))
	for i, c := range s.Components {
		sub[i] = p[c]
	}
	return vek32.Dot(sub, s.Axis)
}

func (s *SubspaceSplitter) Branch(p []float32) int {
	if s.Project(p) < s.Threshold {
		return 0
	}
	return 1
}

func (s *SubspaceSplitter) Equal(other Splitter) bool {
	o, ok := other.(*SubspaceSplitter)
	return ok && o.Threshold == s.Threshold &&
		slices.Equal(o.Components, s.Components) &&
		slices.Equal(o.Axis, s.Axis)
}

// WriteTo encodes threshold:float32, the components as len:int32 plus len
// int32 values, then the axis as len:int32 plus len float32 values.
func (s *SubspaceSplitter) WriteTo(w io.Writer) (int64, error) {
	bw := &binWriter{w: w}
	bw.put(s.Threshold)
	bw.putInts(s.Components)
	bw.putFloats(s.Axis)
	if bw.err != nil {
		return bw.n, fmt.Errorf("failed to write subspace splitter: %w", bw.err)
	}
	return bw.n, nil
}

func (s *SubspaceSplitter) ReadFrom(r io.Reader) (int64, error) {
	br := &binReader{r: r, corrupt: ErrCorruptTree}
	br.get(&s.Threshold)
	s.Components = br.ints()
	s.Axis = br.floats()
	if br.err != nil {
		return br.n, fmt.Errorf("failed to read subspace splitter: %w", br.err)
	}
	if len(s.Components) != len(s.Axis) {
		return br.n, fmt.Errorf("subspace splitter has %d components but %d axis values: %w",
			len(s.Components), len(s.Axis), ErrCorruptTree)
	}
	for _, c := range s.Components {
		if c < 0 {
			return br.n, fmt.Errorf("negative component %d: %w", c, ErrCorruptTree)
		}
	}
	return br.n, nil
}
