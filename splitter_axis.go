package ranforest

import (
	"fmt"
	"io"
)

// AxisSplitter sends a point left when its coordinate on Axis is below
// Threshold, right otherwise.
type AxisSplitter struct {
	Threshold float32
	Axis      int
}

func (s *AxisSplitter) Kind() SplitterKind { return AxisSplitterKind }

func (s *AxisSplitter) Branches() int { return 2 }

func (s *AxisSplitter) Branch(p []float32) int {
	if p[s.Axis] < s.Threshold {
		return 0
	}
	return 1
}

func (s *AxisSplitter) Equal(other Splitter) bool {
	o, ok := other.(*AxisSplitter)
	return ok && o.Threshold == s.Threshold && o.Axis == s.Axis
}

// WriteTo encodes threshold:float32 then axis:int32.
func (s *AxisSplitter) WriteTo(w io.Writer) (int64, error) {
	bw := &binWriter{w: w}
	bw.put(s.Threshold)
	bw.put(int32(s.Axis))
	if bw.err != nil {
		return bw.n, fmt.Errorf("failed to write axis splitter: %w", bw.err)
	}
	return bw.n, nil
}

func (s *AxisSplitter) ReadFrom(r io.Reader) (int64, error) {
	br := &binReader{r: r, corrupt: ErrCorruptTree}
	var axis int32
	br.get(&s.Threshold)
	br.get(&axis)
	if br.err != nil {
		return br.n, fmt.Errorf("failed to read axis splitter: %w", br.err)
	}
	if axis < 0 {
		return br.n, fmt.Errorf("negative axis %d: %w", axis, ErrCorruptTree)
	}
	s.Axis = int(axis)
	return br.n, nil
}
