package ranforest

import "errors"

var (
	// ErrDimensionMismatch is returned when a vector does not have the forest's
	// (or the clustering engine's) dimensionality.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrEmptyData is returned when an operation needs at least one data point.
	ErrEmptyData = errors.New("empty data")

	// ErrInvalidTreeCount is returned when Grow is asked for fewer than one tree.
	ErrInvalidTreeCount = errors.New("number of trees must be positive")

	// ErrTreeOutOfRange is returned for a tree id outside [0, NumTrees).
	ErrTreeOutOfRange = errors.New("tree id out of range")

	// ErrNotGrown is returned by queries against a forest without trees.
	ErrNotGrown = errors.New("forest has no trees")

	// ErrCorruptTree is returned when a tree file fails validation on read.
	ErrCorruptTree = errors.New("corrupt tree file")

	// ErrCorruptGraph is returned when an encoded bipartite graph is malformed.
	ErrCorruptGraph = errors.New("corrupt bipartite graph")

	// ErrCorruptCenters is returned when an encoded center set is malformed.
	ErrCorruptCenters = errors.New("corrupt cluster centers")

	// ErrUnknownSplitterKind is returned for an unrecognized splitter tag.
	ErrUnknownSplitterKind = errors.New("unknown splitter kind")

	// ErrUnknownKernelKind is returned for an unrecognized kernel name.
	ErrUnknownKernelKind = errors.New("unknown kernel kind")

	// ErrUnknownDistanceKind is returned when an unknown distance kind is provided to NewDistance.
	ErrUnknownDistanceKind = errors.New("unknown distance kind")

	// ErrClusterOutOfRange is returned when a candidate cluster has no center.
	ErrClusterOutOfRange = errors.New("cluster id out of range")

	// ErrGraphMismatch is returned when a prior graph does not fit the data it clusters.
	ErrGraphMismatch = errors.New("graph does not match data")
)
