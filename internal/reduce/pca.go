// Package reduce projects store feature vectors into a low-dimensional space
// via principal component analysis, ordered by explained variance.
package reduce

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Result holds the reduced representation and the projection that produced it.
type Result struct {
	// Reduced is the N x K projection of the input rows, one row per store,
	// in input order.
	Reduced [][]float64

	// Projection is the K x M projection matrix (principal components as
	// rows), usable to project further vectors into the same space.
	Projection [][]float64

	// ExplainedVariance holds the per-component share of total variance,
	// descending.
	ExplainedVariance []float64
}

// PCA reduces an N x M row matrix to components dimensions. components must
// not exceed min(N-1, M); otherwise ErrInsufficientData is returned and the
// caller must lower the component count or abort. The output is deterministic:
// components are ordered by descending eigenvalue and each eigenvector's sign
// is fixed so its largest-magnitude entry is positive.
func PCA(rows [][]float64, components int) (*Result, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("pca: empty input: %w", ErrInsufficientData)
	}
	n := len(rows)
	m := len(rows[0])
	if components <= 0 {
		return nil, fmt.Errorf("pca: components must be positive, got %d", components)
	}
	if limit := min(n-1, m); components > limit {
		return nil, fmt.Errorf("pca: %d components requested but only %d supported by %d stores x %d features: %w",
			components, limit, n, m, ErrInsufficientData)
	}

	data := make([]float64, n*m)
	for i, row := range rows {
		if len(row) != m {
			return nil, fmt.Errorf("pca: row %d has %d features, want %d", i, len(row), m)
		}
		copy(data[i*m:], row)
	}
	X := mat.NewDense(n, m, data)

	// Center each column
	for j := 0; j < m; j++ {
		col := mat.Col(nil, j, X)
		mean := 0.0
		for _, v := range col {
			mean += v
		}
		mean /= float64(n)
		for i := 0; i < n; i++ {
			X.Set(i, j, X.At(i, j)-mean)
		}
	}

	// Covariance matrix
	var covDense mat.Dense
	covDense.Mul(X.T(), X)
	covDense.Scale(1/float64(n-1), &covDense)

	cov := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			cov.SetSym(i, j, covDense.At(i, j))
		}
	}

	var eigen mat.EigenSym
	if ok := eigen.Factorize(cov, true); !ok {
		return nil, ErrFactorization
	}

	eigenValues := eigen.Values(nil)
	var eigenVectors mat.Dense
	eigen.VectorsTo(&eigenVectors)

	// Order components by descending eigenvalue
	indices := make([]int, len(eigenValues))
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(i, j int) bool {
		return eigenValues[indices[i]] > eigenValues[indices[j]]
	})

	totalVariance := 0.0
	for _, v := range eigenValues {
		if v > 0 {
			totalVariance += v
		}
	}

	projection := make([][]float64, components)
	explained := make([]float64, components)
	for c := 0; c < components; c++ {
		idx := indices[c]
		vec := mat.Col(nil, idx, &eigenVectors)

		// Fix the sign so repeated runs produce identical coordinates
		maxAbs, maxAt := 0.0, 0
		for j, v := range vec {
			if a := math.Abs(v); a > maxAbs {
				maxAbs, maxAt = a, j
			}
		}
		if vec[maxAt] < 0 {
			for j := range vec {
				vec[j] = -vec[j]
			}
		}

		projection[c] = vec
		if totalVariance > 0 {
			explained[c] = math.Max(eigenValues[idx], 0) / totalVariance
		}
	}

	// Project the centered data
	proj := mat.NewDense(m, components, nil)
	for c := range projection {
		proj.SetCol(c, projection[c])
	}
	var reduced mat.Dense
	reduced.Mul(X, proj)

	out := make([][]float64, n)
	for i := range out {
		out[i] = mat.Row(nil, i, &reduced)
	}

	return &Result{
		Reduced:           out,
		Projection:        projection,
		ExplainedVariance: explained,
	}, nil
}
