package ranforest

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// QueryTree descends tree treeID with p and returns the node where descent
// stops: a leaf, or the first node at levelLimit. Pass NoLevelLimit to
// always reach a leaf.
func (f *Forest) QueryTree(p []float32, treeID, levelLimit int) (NodeID, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err := f.checkQuery(p); err != nil {
		return 0, err
	}
	if treeID < 0 || treeID >= len(f.roots) {
		return 0, fmt.Errorf("tree %d of %d: %w", treeID, len(f.roots), ErrTreeOutOfRange)
	}
	return f.descend(p, f.roots[treeID], levelLimit), nil
}

// Query returns, for every tree in order, the node p lands in.
func (f *Forest) Query(p []float32, levelLimit int) ([]NodeID, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err := f.checkQuery(p); err != nil {
		return nil, err
	}
	nodes := make([]NodeID, len(f.roots))
	for t, root := range f.roots {
		nodes[t] = f.descend(p, root, levelLimit)
	}
	return nodes, nil
}

// BatchQuery lands every point in every tree and returns the result as a
// graph from point index to NodeID. Each point gets one edge per tree with
// weight 1/NumTrees, so its weights sum to one.
func (f *Forest) BatchQuery(points [][]float32, levelLimit int) (*Bipartite, error) {
	return f.batchQuery(points, levelLimit, 0, zerolog.Nop())
}

func (f *Forest) batchQuery(points [][]float32, levelLimit, workers int, logger zerolog.Logger) (*Bipartite, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.roots) == 0 {
		return nil, ErrNotGrown
	}
	for i, p := range points {
		if len(p) != f.dim {
			return nil, fmt.Errorf("point %d has %d coordinates, want %d: %w", i, len(p), f.dim, ErrDimensionMismatch)
		}
	}

	start := time.Now()
	numTrees := len(f.roots)
	landed := make([]NodeID, len(points)*numTrees)
	parallelRange(len(points), workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			for t, root := range f.roots {
				landed[i*numTrees+t] = f.descend(points[i], root, levelLimit)
			}
		}
	})

	graph := NewBipartite(len(points), f.table.len())
	weight := 1 / float64(numTrees)
	for i := range points {
		for t := range numTrees {
			graph.Add(i, int(landed[i*numTrees+t]), weight)
		}
	}

	logger.Debug().
		Int("points", len(points)).
		Int("trees", numTrees).
		Int("level_limit", levelLimit).
		Dur("elapsed", time.Since(start)).
		Msg("batch query")
	return graph, nil
}

func (f *Forest) checkQuery(p []float32) error {
	if len(f.roots) == 0 {
		return ErrNotGrown
	}
	if len(p) != f.dim {
		return fmt.Errorf("query has %d coordinates, want %d: %w", len(p), f.dim, ErrDimensionMismatch)
	}
	return nil
}

// descend must be called with f.mu held.
func (f *Forest) descend(p []float32, id NodeID, levelLimit int) NodeID {
	t := &f.table
	for len(t.children[id]) > 0 && t.levels[id] != levelLimit {
		id = t.children[id][t.judges[id].Branch(p)]
	}
	return id
}

// ForestQuery is a builder for batch queries against a forest.
//
// Example:
//
//	graph, err := forest.NewQuery().
//	    WithPoints(points...).
//	    WithLevel(3).
//	    WithWorkers(4).
//	    Execute()
type ForestQuery struct {
	forest  *Forest
	points  [][]float32
	level   int
	workers int
	logger  zerolog.Logger
}

// NewQuery starts a batch query with no level limit.
func (f *Forest) NewQuery() *ForestQuery {
	return &ForestQuery{
		forest: f,
		level:  NoLevelLimit,
		logger: zerolog.Nop(),
	}
}

// WithPoints appends query points.
func (q *ForestQuery) WithPoints(points ...[]float32) *ForestQuery {
	q.points = append(q.points, points...)
	return q
}

// WithLevel stops descent at the given level.
func (q *ForestQuery) WithLevel(level int) *ForestQuery {
	q.level = level
	return q
}

// WithWorkers bounds the number of goroutines. Zero means GOMAXPROCS.
func (q *ForestQuery) WithWorkers(workers int) *ForestQuery {
	q.workers = workers
	return q
}

// WithLogger sets the logger that receives timing events.
func (q *ForestQuery) WithLogger(logger zerolog.Logger) *ForestQuery {
	q.logger = logger
	return q
}

// Execute runs the query. See BatchQuery for the shape of the result.
func (q *ForestQuery) Execute() (*Bipartite, error) {
	return q.forest.batchQuery(q.points, q.level, q.workers, q.logger)
}
