package services

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/SanjayDoppalapudi/RAG/internal/core/domain"
)

// varianceEpsilon is the variance below which a component is treated as
// absent and padded with a zero axis.
const varianceEpsilon = 1e-12

// FitBasis fits a 3-component PCA basis over vectors: mean-centring plus the
// three directions of largest variance.
//
// Fewer than two vectors, or a corpus of rank below three, yields zero
// directions for the missing components, so projections are always a
// well-formed 3-tuple. Component signs are normalised so the largest
// absolute loading is positive, making refits over the same data identical.
func FitBasis(vectors [][]float32, version string) (*domain.ProjectionBasis, error) {
	if len(vectors) == 0 {
		return &domain.ProjectionBasis{Version: version}, nil
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty embedding", domain.ErrInvalidInput)
	}
	data := make([]float64, 0, len(vectors)*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d",
				domain.ErrDimensionMismatch, i, len(v), dim)
		}
		for _, x := range v {
			data = append(data, float64(x))
		}
	}

	basis := &domain.ProjectionBasis{
		Version:   version,
		Dimension: dim,
		Mean:      columnMeans(data, len(vectors), dim),
	}
	for k := range basis.Components {
		basis.Components[k] = make([]float64, dim)
	}
	if len(vectors) < 2 {
		return basis, nil
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(mat.NewDense(len(vectors), dim, data), nil); !ok {
		return nil, fmt.Errorf("principal component decomposition failed for %d vectors", len(vectors))
	}
	vars := pc.VarsTo(nil)
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	_, cols := vecs.Dims()
	for k := 0; k < 3 && k < cols && k < len(vars); k++ {
		if vars[k] <= varianceEpsilon || math.IsNaN(vars[k]) {
			continue
		}
		mat.Col(basis.Components[k], k, &vecs)
		normaliseSign(basis.Components[k])
		basis.Variance[k] = vars[k]
	}
	return basis, nil
}

// Project maps vectors into the basis. The same basis and input always give
// the same output.
func Project(basis *domain.ProjectionBasis, vectors [][]float32) ([]domain.Point3, error) {
	points := make([]domain.Point3, len(vectors))
	for i, v := range vectors {
		p, err := ProjectQuery(basis, v)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		points[i] = p
	}
	return points, nil
}

// ProjectQuery maps one vector with the basis's centring and rotation. The
// basis is never refit.
func ProjectQuery(basis *domain.ProjectionBasis, vector []float32) (domain.Point3, error) {
	var p domain.Point3
	if basis == nil {
		return p, fmt.Errorf("%w: no projection basis", domain.ErrInvalidInput)
	}
	if basis.Dimension == 0 {
		// Basis over an empty corpus: everything sits at the origin.
		return p, nil
	}
	if len(vector) != basis.Dimension {
		return p, fmt.Errorf("%w: got %d, basis has %d", domain.ErrDimensionMismatch, len(vector), basis.Dimension)
	}

	centred := make([]float64, len(vector))
	for i, x := range vector {
		centred[i] = float64(x) - basis.Mean[i]
	}
	for k, comp := range basis.Components {
		if len(comp) == basis.Dimension {
			p[k] = floats.Dot(centred, comp)
		}
	}
	return p, nil
}

func columnMeans(data []float64, rows, cols int) []float64 {
	mean := make([]float64, cols)
	for r := 0; r < rows; r++ {
		floats.Add(mean, data[r*cols:(r+1)*cols])
	}
	floats.Scale(1/float64(rows), mean)
	return mean
}

// normaliseSign flips v so its largest-magnitude entry is positive.
func normaliseSign(v []float64) {
	idx := 0
	for i := range v {
		if math.Abs(v[i]) > math.Abs(v[idx]) {
			idx = i
		}
	}
	if v[idx] < 0 {
		floats.Scale(-1, v)
	}
}
