package reduce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storewise/cohort/test/testutil"
)

func TestPCA(t *testing.T) {
	t.Run("reduces dimensions", func(t *testing.T) {
		rows := testutil.Blobs(7, 4, 30, 20, 0.02)
		res, err := PCA(rows, 5)
		require.NoError(t, err)
		require.Len(t, res.Reduced, len(rows))
		assert.Len(t, res.Reduced[0], 5)
		assert.Len(t, res.Projection, 5)
		assert.Len(t, res.Projection[0], 20)
	})

	t.Run("explained variance is descending and within unit sum", func(t *testing.T) {
		rows := testutil.Blobs(7, 4, 30, 20, 0.02)
		res, err := PCA(rows, 6)
		require.NoError(t, err)

		var total float64
		for i, v := range res.ExplainedVariance {
			assert.GreaterOrEqual(t, v, 0.0)
			if i > 0 {
				assert.LessOrEqual(t, v, res.ExplainedVariance[i-1])
			}
			total += v
		}
		assert.LessOrEqual(t, total, 1.0+1e-9)
		// Four well-separated blobs concentrate variance in few components
		assert.Greater(t, res.ExplainedVariance[0], 0.1)
	})

	t.Run("deterministic", func(t *testing.T) {
		rows := testutil.Blobs(11, 3, 20, 12, 0.03)
		a, err := PCA(rows, 4)
		require.NoError(t, err)
		b, err := PCA(rows, 4)
		require.NoError(t, err)
		assert.Equal(t, a.Reduced, b.Reduced)
		assert.Equal(t, a.Projection, b.Projection)
	})

	t.Run("too many components for too few stores", func(t *testing.T) {
		rows := testutil.Blobs(3, 1, 3, 100, 0.01)
		require.Len(t, rows, 3)
		_, err := PCA(rows, 50)
		require.Error(t, err)
		assert.True(t, IsInsufficientData(err))
	})

	t.Run("components capped by feature count", func(t *testing.T) {
		rows := testutil.Blobs(5, 2, 50, 4, 0.02)
		_, err := PCA(rows, 5)
		require.Error(t, err)
		assert.True(t, IsInsufficientData(err))
	})

	t.Run("rejects non-positive components", func(t *testing.T) {
		rows := testutil.Blobs(5, 2, 10, 4, 0.02)
		_, err := PCA(rows, 0)
		require.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := PCA(nil, 2)
		require.Error(t, err)
		assert.True(t, IsInsufficientData(err))
	})
}
