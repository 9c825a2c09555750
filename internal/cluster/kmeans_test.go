package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storewise/cohort/test/testutil"
)

func kmeansConfig(seed int64) Config {
	cfg := DefaultConfig()
	cfg.Seed = seed
	return cfg
}

func TestKMeans(t *testing.T) {
	t.Run("recovers well separated blobs", func(t *testing.T) {
		points := testutil.Blobs(3, 4, 25, 6, 0.01)
		strat, err := New(kmeansConfig(1))
		require.NoError(t, err)

		res, err := strat.Partition(points, 4)
		require.NoError(t, err)
		require.Len(t, res.Labels, len(points))
		assert.True(t, res.Converged)

		// Every blob's 25 points should share a label
		for c := 0; c < 4; c++ {
			first := res.Labels[c*25]
			for i := 1; i < 25; i++ {
				assert.Equal(t, first, res.Labels[c*25+i], "point %d", c*25+i)
			}
		}
	})

	t.Run("labels are contiguous and no cluster empty", func(t *testing.T) {
		points := testutil.Blobs(5, 3, 40, 8, 0.05)
		strat, err := New(kmeansConfig(2))
		require.NoError(t, err)

		res, err := strat.Partition(points, 7)
		require.NoError(t, err)

		counts := make([]int, 7)
		for _, l := range res.Labels {
			require.GreaterOrEqual(t, l, 0)
			require.Less(t, l, 7)
			counts[l]++
		}
		for c, n := range counts {
			assert.Positive(t, n, "cluster %d empty", c)
		}
	})

	t.Run("same seed same labels", func(t *testing.T) {
		points := testutil.Blobs(9, 5, 20, 10, 0.04)
		a, err := New(kmeansConfig(42))
		require.NoError(t, err)
		b, err := New(kmeansConfig(42))
		require.NoError(t, err)

		ra, err := a.Partition(points, 5)
		require.NoError(t, err)
		rb, err := b.Partition(points, 5)
		require.NoError(t, err)
		assert.Equal(t, ra.Labels, rb.Labels)
		assert.Equal(t, ra.Inertia, rb.Inertia)
	})

	t.Run("fewer points than clusters", func(t *testing.T) {
		points := testutil.Blobs(1, 1, 3, 4, 0.01)
		strat, err := New(kmeansConfig(1))
		require.NoError(t, err)

		_, err = strat.Partition(points, 10)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("exhausted iteration budget surfaces divergence", func(t *testing.T) {
		points := testutil.Blobs(7, 6, 40, 8, 0.3)
		cfg := kmeansConfig(1)
		cfg.MaxIterations = 1
		cfg.Restarts = 1
		strat, err := New(cfg)
		require.NoError(t, err)

		// One Lloyd pass over scattered data always moves the centroids,
		// so the single restart cannot converge.
		_, err = strat.Partition(points, 6)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDiverged)
		assert.True(t, IsDiverged(err))
	})

	t.Run("inertia reported", func(t *testing.T) {
		points := testutil.Blobs(6, 2, 30, 6, 0.02)
		strat, err := New(kmeansConfig(1))
		require.NoError(t, err)

		res, err := strat.Partition(points, 2)
		require.NoError(t, err)
		assert.Greater(t, res.Inertia, 0.0)
	})
}

func TestNewStrategy(t *testing.T) {
	t.Run("unknown strategy", func(t *testing.T) {
		_, err := New(Config{Strategy: "dbscan"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownStrategy)
	})

	t.Run("names", func(t *testing.T) {
		for _, name := range []string{StrategyKMeans, StrategyAgglomerativeAverage, StrategyAgglomerativeWard} {
			strat, err := New(Config{Strategy: name})
			require.NoError(t, err)
			assert.Equal(t, name, strat.Name())
		}
	})
}
