package ranforest

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/viterin/vek/vek32"
	"gonum.org/v1/gonum/floats"
)

// Default clustering parameters.
const (
	DefaultMaxIter     = 20
	DefaultReplicate   = 10
	DefaultConverge    = 1e-5
	DefaultWtBandwidth = 100.0
)

// ClusterOptions tunes QuasiKMeans.
type ClusterOptions struct {
	// MaxIter caps the number of iterations.
	MaxIter int
	// Replicate is the number of clusters each point keeps.
	Replicate int
	// Converge stops iterating once the energy changes by less than this
	// between two iterations.
	Converge float64
	// WtBandwidth scales distances in the final membership weights
	// exp(-distance/WtBandwidth).
	WtBandwidth float64
}

// DefaultClusterOptions returns the default clustering parameters.
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{
		MaxIter:     DefaultMaxIter,
		Replicate:   DefaultReplicate,
		Converge:    DefaultConverge,
		WtBandwidth: DefaultWtBandwidth,
	}
}

// QuasiKMeans is a k-means variant in which every point may only join
// clusters it was already linked to by a prior graph, typically the output
// of Forest.BatchQuery where the clusters are tree nodes.
//
// Each iteration:
//  1. Moves every cluster center to the mean of the points linked to it.
//     Clusters with no points keep their previous center.
//  2. Relinks every point to the Replicate nearest (squared Euclidean) of
//     the clusters it was linked to in the prior graph, with weight
//     1/Replicate.
//  3. Measures the energy: the summed squared distance of every point to
//     each cluster it keeps.
//
// Iteration stops after MaxIter rounds or, from the second round on, when
// the energy changes by less than Converge. Final weights are
// exp(-distance/WtBandwidth) over Euclidean distance, normalized per point.
//
// Fit must not run concurrently with other methods. After Fit, Concentrate
// and the accessors are safe for concurrent use.
type QuasiKMeans struct {
	dim     int
	options ClusterOptions
	centers [][]float32

	iterations  int
	energy      float64
	energyDelta float64

	// Workers bounds the goroutines used per phase. Zero means GOMAXPROCS.
	Workers int
	// Logger receives per-iteration energy at debug level.
	Logger zerolog.Logger
}

// NewQuasiKMeans creates an engine for dim-dimensional points.
func NewQuasiKMeans(dim int, opts ClusterOptions) (*QuasiKMeans, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive")
	}
	if opts.MaxIter < 1 {
		return nil, fmt.Errorf("max iterations must be positive: %d", opts.MaxIter)
	}
	if opts.Replicate < 1 {
		return nil, fmt.Errorf("replicate must be positive: %d", opts.Replicate)
	}
	if opts.WtBandwidth <= 0 {
		return nil, fmt.Errorf("weight bandwidth must be positive: %g", opts.WtBandwidth)
	}
	if opts.Converge < 0 {
		return nil, fmt.Errorf("convergence threshold must not be negative: %g", opts.Converge)
	}
	return &QuasiKMeans{
		dim:     dim,
		options: opts,
		Logger:  zerolog.Nop(),
	}, nil
}

// Dim returns the dimensionality of the engine.
func (q *QuasiKMeans) Dim() int { return q.dim }

// Options returns the engine's parameters.
func (q *QuasiKMeans) Options() ClusterOptions { return q.options }

// Iterations returns the number of iterations the last Fit ran.
func (q *QuasiKMeans) Iterations() int { return q.iterations }

// Energy returns the energy of the last iteration.
func (q *QuasiKMeans) Energy() float64 { return q.energy }

// EnergyDelta returns |previous - last| energy; zero after one iteration.
func (q *QuasiKMeans) EnergyDelta() float64 { return q.energyDelta }

// NumClusters returns the number of centers.
func (q *QuasiKMeans) NumClusters() int { return len(q.centers) }

// Centers returns a copy of the cluster centers.
func (q *QuasiKMeans) Centers() [][]float32 {
	out := make([][]float32, len(q.centers))
	for i, c := range q.centers {
		out[i] = append([]float32(nil), c...)
	}
	return out
}

// Fit clusters features under prior. prior's A side indexes features and
// its B side names the clusters; it is not modified. The result links
// every point to at most Replicate of its prior clusters with weights that
// sum to one.
//
// Example:
//
//	prior, _ := forest.BatchQuery(points, NoLevelLimit)
//	qkm, _ := NewQuasiKMeans(dim, DefaultClusterOptions())
//	membership, err := qkm.Fit(points, prior)
func (q *QuasiKMeans) Fit(features [][]float32, prior *Bipartite) (*Bipartite, error) {
	if len(features) == 0 {
		return nil, ErrEmptyData
	}
	for i, p := range features {
		if len(p) != q.dim {
			return nil, fmt.Errorf("point %d has %d coordinates, want %d: %w", i, len(p), q.dim, ErrDimensionMismatch)
		}
	}
	if prior == nil || prior.SizeA() > len(features) {
		return nil, fmt.Errorf("prior graph must cover at most %d points: %w", len(features), ErrGraphMismatch)
	}

	numPoints, numClusters := prior.SizeA(), prior.SizeB()
	q.centers = make([][]float32, numClusters)
	for l := range q.centers {
		q.centers[l] = make([]float32, q.dim)
	}
	q.iterations, q.energy, q.energyDelta = 0, 0, 0

	logger := q.Logger
	start := time.Now()
	retained := make([][]candidate, numPoints)
	current := prior
	last := math.Inf(1)

	for iter := 0; iter < q.options.MaxIter; iter++ {
		q.updateCenters(features, current)
		energy := q.reassign(features, prior, retained)

		q.iterations = iter + 1
		q.energy = energy
		if iter > 0 {
			q.energyDelta = math.Abs(last - energy)
		}
		logger.Debug().
			Int("iteration", q.iterations).
			Float64("energy", energy).
			Float64("delta", q.energyDelta).
			Msg("clustering iteration")

		if iter > 0 && q.energyDelta < q.options.Converge {
			break
		}
		last = energy

		current = NewBipartite(numPoints, numClusters)
		weight := 1 / float64(q.options.Replicate)
		for n, cands := range retained {
			for _, c := range cands {
				current.Add(n, c.id, weight)
			}
		}
	}

	result := NewBipartite(numPoints, numClusters)
	for n, cands := range retained {
		for _, m := range q.membership(cands) {
			result.Add(n, m.Cluster, m.Weight)
		}
	}

	logger.Info().
		Int("points", numPoints).
		Int("clusters", numClusters).
		Int("iterations", q.iterations).
		Float64("energy", q.energy).
		Dur("elapsed", time.Since(start)).
		Msg("clustering finished")
	return result, nil
}

// updateCenters moves every cluster with members to the mean of its
// distinct members.
func (q *QuasiKMeans) updateCenters(features [][]float32, graph *Bipartite) {
	parallelRange(len(q.centers), q.Workers, func(lo, hi int) {
		sum := make([]float32, q.dim)
		for l := lo; l < hi; l++ {
			members := graph.PeersTo(l)
			if members.IsEmpty() {
				continue
			}
			clear(sum)
			it := members.Iterator()
			for it.HasNext() {
				vek32.Add_Inplace(sum, features[it.Next()])
			}
			vek32.MulNumber_Inplace(sum, 1/float32(members.GetCardinality()))
			copy(q.centers[l], sum)
		}
	})
}

// reassign keeps, for every point, the Replicate nearest of its prior
// clusters in retained and returns the energy.
func (q *QuasiKMeans) reassign(features [][]float32, prior *Bipartite, retained [][]candidate) float64 {
	energies := make([]float64, len(retained))
	parallelRange(len(retained), q.Workers, func(lo, hi int) {
		top := newNearestK(q.options.Replicate)
		for n := lo; n < hi; n++ {
			top.reset()
			it := prior.PeersFrom(n).Iterator()
			for it.HasNext() {
				l := int(it.Next())
				top.offer(candidate{id: l, distance: l2SquaredDistanceImpl.Calculate(features[n], q.centers[l])})
			}
			retained[n] = top.sorted()
			for _, c := range retained[n] {
				energies[n] += c.distance
			}
		}
	})
	return floats.Sum(energies)
}

// Membership is a cluster a point belongs to and the weight of that tie.
type Membership struct {
	Cluster int
	Weight  float64
}

// membership turns squared distances, nearest first, into normalized
// exp(-distance/WtBandwidth) weights. Weights are computed relative to the
// nearest distance, which leaves the normalized result unchanged and keeps
// far points from underflowing to zero.
func (q *QuasiKMeans) membership(cands []candidate) []Membership {
	if len(cands) == 0 {
		return nil
	}
	out := make([]Membership, len(cands))
	nearest := math.Sqrt(cands[0].distance)
	var total float64
	for i, c := range cands {
		w := math.Exp(-(math.Sqrt(c.distance) - nearest) / q.options.WtBandwidth)
		out[i] = Membership{Cluster: c.id, Weight: w}
		total += w
	}
	for i := range out {
		out[i].Weight /= total
	}
	return out
}

// Concentrate ranks the candidate clusters for a point against the fitted
// centers and returns the Replicate nearest, nearest first, weighted the
// same way as Fit's result. Duplicate candidates are considered once.
func (q *QuasiKMeans) Concentrate(p []float32, candidates []int) ([]Membership, error) {
	if len(p) != q.dim {
		return nil, fmt.Errorf("point has %d coordinates, want %d: %w", len(p), q.dim, ErrDimensionMismatch)
	}
	top := newNearestK(q.options.Replicate)
	seen := make(map[int]struct{}, len(candidates))
	for _, l := range candidates {
		if l < 0 || l >= len(q.centers) {
			return nil, fmt.Errorf("cluster %d of %d: %w", l, len(q.centers), ErrClusterOutOfRange)
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		top.offer(candidate{id: l, distance: l2SquaredDistanceImpl.Calculate(p, q.centers[l])})
	}
	return q.membership(top.sorted()), nil
}
