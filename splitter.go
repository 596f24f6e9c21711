package ranforest

import (
	"fmt"
	"io"
)

// SplitterKind is the one-byte tag written before a splitter's encoding in a
// tree file.
type SplitterKind uint8

const (
	// AxisSplitterKind tags an *AxisSplitter.
	AxisSplitterKind SplitterKind = iota + 1
	// DistanceSplitterKind tags a *DistanceSplitter.
	DistanceSplitterKind
	// SubspaceSplitterKind tags a *SubspaceSplitter.
	SubspaceSplitterKind
)

func (k SplitterKind) String() string {
	switch k {
	case AxisSplitterKind:
		return "axis"
	case DistanceSplitterKind:
		return "distance"
	case SubspaceSplitterKind:
		return "subspace"
	default:
		return fmt.Sprintf("SplitterKind(%d)", uint8(k))
	}
}

// Splitter is the decision rule stored at an internal tree node. It routes a
// point to one of the node's children.
//
// Branch is a pure function of the point: the same point always lands in
// the same branch, and implementations must be safe for concurrent use once
// built. Branch returns a value in [0, Branches()).
//
// WriteTo and ReadFrom encode only the splitter's own fields; the kind tag
// is written by the tree codec.
type Splitter interface {
	Kind() SplitterKind
	Branch(p []float32) int
	Branches() int
	Equal(other Splitter) bool
	io.WriterTo
	io.ReaderFrom
}

// Compile-time checks to ensure all splitters implement Splitter.
var (
	_ Splitter = (*AxisSplitter)(nil)
	_ Splitter = (*DistanceSplitter)(nil)
	_ Splitter = (*SubspaceSplitter)(nil)
)

// NewSplitter returns an empty splitter of the given kind, ready for
// ReadFrom.
func NewSplitter(kind SplitterKind) (Splitter, error) {
	switch kind {
	case AxisSplitterKind:
		return &AxisSplitter{}, nil
	case DistanceSplitterKind:
		return &DistanceSplitter{}, nil
	case SubspaceSplitterKind:
		return &SubspaceSplitter{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownSplitterKind, uint8(kind))
	}
}
