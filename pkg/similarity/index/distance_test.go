package index

import (
	"testing"

	"github.com/himanishpuri/AcousticSimilarity/pkg/similarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAngularDistance(t *testing.T) {
	assert.InDelta(t, 0, AngularDistance([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 1.41421, AngularDistance([]float32{1, 0}, []float32{0, 1}), 1e-4)
	assert.InDelta(t, 2, AngularDistance([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Equal(t, float32(2), AngularDistance([]float32{0, 0}, []float32{1, 0}))
}

func TestAngularDistanceSelfIsExactlyZero(t *testing.T) {
	// Rounding in the cosine would otherwise leave a tiny positive distance.
	for _, v := range [][]float32{
		{0.1, 0.7, 0.3},
		{1e-3, 3.3, -2.9, 0.5},
		{123.456, -0.001},
	} {
		assert.Equal(t, float32(0), AngularDistance(v, v), "%v", v)
	}
	assert.Equal(t, float32(2), AngularDistance([]float32{0.1, 0.7}, []float32{-0.1, -0.7}))
}

func TestManhattanAndHamming(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{2, 2, 1}
	assert.Equal(t, float32(3), ManhattanDistance(a, b))
	assert.Equal(t, float32(2), HammingDistance(a, b))
	assert.Equal(t, float32(0), HammingDistance(a, a))
}

func TestDistanceFuncCoversKnownTypes(t *testing.T) {
	for _, dt := range similarity.DistanceTypes {
		fn, err := distanceFunc(dt)
		require.NoError(t, err, dt)
		assert.NotNil(t, fn)
	}
	_, err := distanceFunc("chebyshev")
	assert.Error(t, err)
}
