package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

func sampleVectors() [][]float32 {
	return [][]float32{
		{1, 0, 0, 0, 0.1},
		{0, 2, 0, 0, 0.2},
		{0, 0, 3, 0, 0.3},
		{0, 0, 0, 4, 0.4},
		{1, 1, 1, 1, 0.5},
		{-1, 2, -3, 4, 0.6},
	}
}

func TestFitBasis_ProjectsToThreeDimensions(t *testing.T) {
	vectors := sampleVectors()
	basis, err := FitBasis(vectors, "v1")
	require.NoError(t, err)

	assert.Equal(t, "v1", basis.Version)
	assert.Equal(t, 5, basis.Dimension)
	require.Len(t, basis.Mean, 5)
	for k := range basis.Components {
		require.Len(t, basis.Components[k], 5)
		assert.Positive(t, basis.Variance[k])
	}
	assert.GreaterOrEqual(t, basis.Variance[0], basis.Variance[1])
	assert.GreaterOrEqual(t, basis.Variance[1], basis.Variance[2])

	points, err := Project(basis, vectors)
	require.NoError(t, err)
	require.Len(t, points, len(vectors))

	// Centred data projects to zero mean on every axis.
	for k := 0; k < 3; k++ {
		var sum float64
		for _, p := range points {
			sum += p[k]
		}
		assert.InDelta(t, 0, sum, 1e-6)
	}
}

func TestFitBasis_RefitIsStable(t *testing.T) {
	a, err := FitBasis(sampleVectors(), "v1")
	require.NoError(t, err)
	b, err := FitBasis(sampleVectors(), "v1")
	require.NoError(t, err)

	for k := range a.Components {
		assert.InDeltaSlice(t, a.Components[k], b.Components[k], 1e-12)
	}
}

func TestFitBasis_DegenerateInputsPadWithZeros(t *testing.T) {
	t.Run("empty corpus", func(t *testing.T) {
		basis, err := FitBasis(nil, "v0")
		require.NoError(t, err)
		p, err := ProjectQuery(basis, []float32{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, domain.Point3{}, p)
	})

	t.Run("single vector", func(t *testing.T) {
		basis, err := FitBasis([][]float32{{1, 2, 3}}, "v1")
		require.NoError(t, err)
		assert.Equal(t, [3]float64{}, basis.Variance)
		p, err := ProjectQuery(basis, []float32{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, domain.Point3{}, p)
	})

	t.Run("two vectors have one direction", func(t *testing.T) {
		basis, err := FitBasis([][]float32{{0, 0, 0, 0}, {1, 1, 0, 0}}, "v2")
		require.NoError(t, err)
		assert.Positive(t, basis.Variance[0])
		assert.Zero(t, basis.Variance[1])
		assert.Zero(t, basis.Variance[2])

		p, err := ProjectQuery(basis, []float32{1, 1, 0, 0})
		require.NoError(t, err)
		assert.InDelta(t, math.Sqrt2/2, p[0], 1e-9)
		assert.Zero(t, p[1])
		assert.Zero(t, p[2])
	})
}

func TestFitBasis_RejectsMixedDimensions(t *testing.T) {
	_, err := FitBasis([][]float32{{1, 2}, {1, 2, 3}}, "v")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestProjectQuery(t *testing.T) {
	basis, err := FitBasis(sampleVectors(), "v1")
	require.NoError(t, err)

	query := []float32{0.5, 0.5, 0.5, 0.5, 0.5}
	first, err := ProjectQuery(basis, query)
	require.NoError(t, err)
	second, err := ProjectQuery(basis, query)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = ProjectQuery(basis, []float32{1, 2})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = ProjectQuery(nil, query)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormaliseSign(t *testing.T) {
	v := []float64{0.1, -0.9, 0.2}
	normaliseSign(v)
	assert.Equal(t, []float64{-0.1, 0.9, -0.2}, v)

	w := []float64{0.5, -0.1}
	normaliseSign(w)
	assert.Equal(t, []float64{0.5, -0.1}, w)
}
