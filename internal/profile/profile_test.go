package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storewise/cohort/internal/matrix"
)

func testMatrix(t *testing.T) *matrix.Matrix {
	t.Helper()
	m, err := matrix.New([]string{"knit", "denim", "outerwear"}, []matrix.Store{
		{ID: "s1", Features: []float64{0.9, 0.1, 0.0}},
		{ID: "s2", Features: []float64{0.8, 0.2, 0.1}},
		{ID: "s3", Features: []float64{0.1, 0.1, 0.9}},
		{ID: "s4", Features: []float64{0.0, 0.2, 0.8}},
	})
	require.NoError(t, err)
	return m
}

func TestBuild(t *testing.T) {
	m := testMatrix(t)
	reduced := [][]float64{{1, 0}, {1.1, 0}, {-1, 0.5}, {-1.2, 0.4}}
	labels := []int{0, 0, 1, 1}

	t.Run("profiles each cluster", func(t *testing.T) {
		profiles, err := Build(m, reduced, labels, 2)
		require.NoError(t, err)
		require.Len(t, profiles, 2)

		assert.Equal(t, 0, profiles[0].Cluster)
		assert.Equal(t, 2, profiles[0].Size)
		assert.Equal(t, "knit", profiles[0].TopFeatures[0].Feature)
		assert.InDelta(t, 0.85, profiles[0].TopFeatures[0].Weight, 1e-9)

		assert.Equal(t, "outerwear", profiles[1].TopFeatures[0].Feature)
		assert.InDelta(t, 1.05, profiles[0].MeanReduced[0], 1e-9)
		assert.InDelta(t, -1.1, profiles[1].MeanReduced[0], 1e-9)
	})

	t.Run("top feature count is bounded", func(t *testing.T) {
		profiles, err := Build(m, reduced, labels, 2)
		require.NoError(t, err)
		assert.Len(t, profiles[0].TopFeatures, 2)

		profiles, err = Build(m, reduced, labels, 10)
		require.NoError(t, err)
		assert.Len(t, profiles[0].TopFeatures, 3)
	})

	t.Run("skips unassigned stores", func(t *testing.T) {
		profiles, err := Build(m, reduced, []int{0, 0, 1, -1}, 3)
		require.NoError(t, err)
		require.Len(t, profiles, 2)
		assert.Equal(t, 1, profiles[1].Size)
	})

	t.Run("rejects empty cluster", func(t *testing.T) {
		_, err := Build(m, reduced, []int{0, 0, 2, 2}, 3)
		require.Error(t, err)
	})

	t.Run("rejects mismatched lengths", func(t *testing.T) {
		_, err := Build(m, reduced[:2], labels, 3)
		require.Error(t, err)
	})
}
