package ranforest

import (
	"fmt"
	"io"
	"slices"
)

// DistanceSplitter sends a point left when its L1 distance to Vantage is
// below Threshold, right otherwise.
type DistanceSplitter struct {
	Threshold float64
	Vantage   []float32
}

func (s *DistanceSplitter) Kind() SplitterKind { return DistanceSplitterKind }

func (s *DistanceSplitter) Branches() int { return 2 }

func (s *DistanceSplitter) Branch(p []float32) int {
	if manhattanDistanceImpl.Calculate(p, s.Vantage) < s.Threshold {
		return 0
	}
	return 1
}

func (s *DistanceSplitter) Equal(other Splitter) bool {
	o, ok := other.(*DistanceSplitter)
	return ok && o.Threshold == s.Threshold && slices.Equal(o.Vantage, s.Vantage)
}

// WriteTo encodes threshold:float64, then the vantage point as len:int32
// followed by len float32 values.
func (s *DistanceSplitter) WriteTo(w io.Writer) (int64, error) {
	bw := &binWriter{w: w}
	bw.put(s.Threshold)
	bw.putFloats(s.Vantage)
	if bw.err != nil {
		return bw.n, fmt.Errorf("failed to write distance splitter: %w", bw.err)
	}
	return bw.n, nil
}

func (s *DistanceSplitter) ReadFrom(r io.Reader) (int64, error) {
	br := &binReader{r: r, corrupt: ErrCorruptTree}
	br.get(&s.Threshold)
	s.Vantage = br.floats()
	if br.err != nil {
		return br.n, fmt.Errorf("failed to read distance splitter: %w", br.err)
	}
	return br.n, nil
}
