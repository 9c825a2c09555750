package quality

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storewise/cohort/test/testutil"
)

func blobLabels(centers, perCenter int) []int {
	labels := make([]int, centers*perCenter)
	for i := range labels {
		labels[i] = i / perCenter
	}
	return labels
}

func TestEvaluate(t *testing.T) {
	t.Run("well separated blobs score high", func(t *testing.T) {
		points := testutil.Blobs(31, 4, 30, 6, 0.01)
		ev, err := NewEvaluator(points, 0)
		require.NoError(t, err)

		rep, err := ev.Evaluate(blobLabels(4, 30), nil)
		require.NoError(t, err)

		assert.Greater(t, rep.Silhouette, 0.7)
		assert.LessOrEqual(t, rep.Silhouette, 1.0)
		assert.Greater(t, rep.CalinskiHarabasz, 100.0)
		assert.GreaterOrEqual(t, rep.DaviesBouldin, 0.0)
		assert.Less(t, rep.DaviesBouldin, 0.5)
	})

	t.Run("random labels score near zero", func(t *testing.T) {
		points := testutil.Blobs(32, 4, 30, 6, 0.01)
		rng := rand.New(rand.NewSource(32))
		labels := make([]int, len(points))
		for i := range labels {
			labels[i] = rng.Intn(4)
		}
		for c := 0; c < 4; c++ {
			labels[c] = c
		}

		ev, err := NewEvaluator(points, 0)
		require.NoError(t, err)
		rep, err := ev.Evaluate(labels, nil)
		require.NoError(t, err)

		good, err := ev.Evaluate(blobLabels(4, 30), nil)
		require.NoError(t, err)

		assert.Less(t, rep.Silhouette, good.Silhouette)
		assert.Less(t, rep.CalinskiHarabasz, good.CalinskiHarabasz)
		assert.Greater(t, rep.DaviesBouldin, good.DaviesBouldin)
	})

	t.Run("silhouette stays in range", func(t *testing.T) {
		points := testutil.Blobs(33, 3, 25, 5, 0.15)
		ev, err := NewEvaluator(points, 0)
		require.NoError(t, err)

		rep, err := ev.Evaluate(blobLabels(3, 25), nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, rep.Silhouette, -1.0)
		assert.LessOrEqual(t, rep.Silhouette, 1.0)
	})

	t.Run("single cluster is degenerate", func(t *testing.T) {
		points := testutil.Blobs(34, 1, 20, 4, 0.05)
		ev, err := NewEvaluator(points, 0)
		require.NoError(t, err)

		_, err = ev.Evaluate(make([]int, 20), nil)
		require.Error(t, err)
		assert.True(t, IsDegenerate(err))
	})

	t.Run("all singletons is degenerate", func(t *testing.T) {
		points := testutil.Blobs(35, 1, 10, 4, 0.05)
		labels := make([]int, 10)
		for i := range labels {
			labels[i] = i
		}
		ev, err := NewEvaluator(points, 0)
		require.NoError(t, err)

		_, err = ev.Evaluate(labels, nil)
		require.Error(t, err)
		assert.True(t, IsDegenerate(err))
	})

	t.Run("subset evaluation matches direct evaluation", func(t *testing.T) {
		points := testutil.Blobs(36, 2, 30, 5, 0.02)
		subset := make([]int, 40)
		for i := range subset {
			subset[i] = i + 10 // last 20 of blob 0, first 20 of blob 1
		}
		labels := make([]int, 40)
		for i := range labels {
			if subset[i] >= 30 {
				labels[i] = 1
			}
		}

		ev, err := NewEvaluator(points, 0)
		require.NoError(t, err)
		viaSubset, err := ev.Evaluate(labels, subset)
		require.NoError(t, err)

		sub := make([][]float64, 40)
		for i, idx := range subset {
			sub[i] = points[idx]
		}
		direct, err := NewEvaluator(sub, 0)
		require.NoError(t, err)
		viaDirect, err := direct.Evaluate(labels, nil)
		require.NoError(t, err)

		assert.InDelta(t, viaDirect.Silhouette, viaSubset.Silhouette, 1e-9)
		assert.InDelta(t, viaDirect.CalinskiHarabasz, viaSubset.CalinskiHarabasz, 1e-9)
		assert.InDelta(t, viaDirect.DaviesBouldin, viaSubset.DaviesBouldin, 1e-9)
	})

	t.Run("coincident centroids score maximally similar", func(t *testing.T) {
		// Two clusters built from duplicate rows share a centroid, so
		// Davies-Bouldin must report them as indistinguishable
		points := [][]float64{
			{0.2, 0.2}, {0.2, 0.2},
			{0.8, 0.8}, {0.8, 0.8},
		}
		ev, err := NewEvaluator(points, 0)
		require.NoError(t, err)

		rep, err := ev.Evaluate([]int{0, 1, 0, 1}, nil)
		require.NoError(t, err)
		assert.True(t, math.IsInf(rep.DaviesBouldin, 1))
	})

	t.Run("rejects gapped labels", func(t *testing.T) {
		points := testutil.Blobs(37, 1, 6, 3, 0.05)
		ev, err := NewEvaluator(points, 0)
		require.NoError(t, err)

		_, err = ev.Evaluate([]int{0, 0, 2, 2, 2, 2}, nil)
		require.Error(t, err)
	})

	t.Run("distance cache survives repeated evaluations", func(t *testing.T) {
		points := testutil.Blobs(38, 3, 20, 5, 0.02)
		ev, err := NewEvaluator(points, 0)
		require.NoError(t, err)

		first, err := ev.Evaluate(blobLabels(3, 20), nil)
		require.NoError(t, err)
		second, err := ev.Evaluate(blobLabels(3, 20), nil)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
