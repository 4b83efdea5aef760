package index

import (
	"fmt"
	"math"

	"github.com/coder/hnsw"
	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity"
)

// Graph files record their distance function by name, so every function
// used here must be registered before an index is exported or imported.
// Euclidean is already registered by hnsw itself.
func init() {
	hnsw.RegisterDistanceFunc(string(similarity.DistanceAngular), AngularDistance)
	hnsw.RegisterDistanceFunc(string(similarity.DistanceManhattan), ManhattanDistance)
	hnsw.RegisterDistanceFunc(string(similarity.DistanceHamming), HammingDistance)
}

// distanceFunc returns the graph distance function for a distance type.
func distanceFunc(t similarity.DistanceType) (hnsw.DistanceFunc, error) {
	switch t {
	case similarity.DistanceAngular:
		return AngularDistance, nil
	case similarity.DistanceEuclidean:
		return hnsw.EuclideanDistance, nil
	case similarity.DistanceManhattan:
		return ManhattanDistance, nil
	case similarity.DistanceHamming:
		return HammingDistance, nil
	default:
		return nil, fmt.Errorf("unsupported distance type %q", t)
	}
}

// AngularDistance is sqrt(2 * (1 - cos(a, b))), ranging over [0, 2].
// A zero-magnitude vector is treated as maximally distant.
func AngularDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 2
	}
	// sqrt(na*nb) keeps cos exactly 1 for a vector against itself.
	cos := dot / math.Sqrt(na*nb)
	if cos >= 1 {
		return 0
	}
	return float32(math.Sqrt(2 - 2*math.Max(cos, -1)))
}

// ManhattanDistance is the L1 distance.
func ManhattanDistance(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += math.Abs(float64(a[i]) - float64(b[i]))
	}
	return float32(sum)
}

// HammingDistance counts the components that differ.
func HammingDistance(a, b []float32) float32 {
	var n int
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return float32(n)
}
