package ranforest

import (
	"github.com/viterin/vek/vek32"
)

// DistanceKind names a metric between feature vectors.
//   - Manhattan (L1): sum of absolute coordinate differences, used by the
//     vantage-point kernel and its splitter
//   - Euclidean (L2): straight-line distance, used for the final cluster
//     membership weights
//   - L2Squared: squared Euclidean distance, used to rank clusters and to
//     measure clustering energy
type DistanceKind string

const (
	// Manhattan distance. Formula: sum(|a[i] - b[i]|)
	Manhattan DistanceKind = "l1"

	// Euclidean distance. Formula: sqrt(sum((a[i] - b[i])^2))
	Euclidean DistanceKind = "l2"

	// L2Squared distance. Formula: sum((a[i] - b[i])^2)
	// Preserves the ordering of Euclidean distance without the sqrt.
	L2Squared DistanceKind = "l2_squared"
)

// Singleton instances of distance strategies.
// These are stateless and can be safely reused across goroutines.
var (
	manhattanDistanceImpl = manhattan{}
	euclideanDistanceImpl = euclidean{}
	l2SquaredDistanceImpl = l2Squared{}
)

// Distance computes a metric between two vectors of equal length.
// Lower values mean closer vectors. Results are float64 so thresholds and
// energies accumulate without float32 rounding.
type Distance interface {
	Calculate(a, b []float32) float64
}

// NewDistance returns a singleton Distance implementation for the specified metric type.
// Returns ErrUnknownDistanceKind if the distance kind is not recognized.
//
// Example:
//
//	dist, err := NewDistance(Manhattan)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	d := dist.Calculate([]float32{1, 2, 3}, []float32{4, 5, 6}) // 9
func NewDistance(kind DistanceKind) (Distance, error) {
	switch kind {
	case Manhattan:
		return manhattanDistanceImpl, nil
	case Euclidean:
		return euclideanDistanceImpl, nil
	case L2Squared:
		return l2SquaredDistanceImpl, nil
	default:
		return nil, ErrUnknownDistanceKind
	}
}

type manhattan struct{}

func (manhattan) Calculate(a, b []float32) float64 {
	return float64(vek32.ManhattanDistance(a, b))
}

type euclidean struct{}

func (euclidean) Calculate(a, b []float32) float64 {
	return float64(vek32.Distance(a, b))
}

// l2Squared accumulates in float64; energies sum many of these.
type l2Squared struct{}

func (l2Squared) Calculate(a, b []float32) float64 {
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return sum
}
